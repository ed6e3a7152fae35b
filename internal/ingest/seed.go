package ingest

import "github.com/Uttutt17/akari/internal/catalog"

// SampleProducts returns the built-in demo catalog used by the seed command.
func SampleProducts() []catalog.Product {
	return []catalog.Product{
		{
			ProductID: "airpods-max",
			Name:      "AirPods Max",
			Category:  "Headphones",
			Attributes: map[string]catalog.Value{
				"price":                    catalog.Number(549),
				"weight":                   catalog.Number(384),
				"battery_life":             catalog.Number(20),
				"noise_cancellation":       catalog.Number(95),
				"material":                 catalog.String("Aluminum"),
				"build_quality":            catalog.String("Premium"),
				"driver_type":              catalog.String("40mm dynamic"),
				"noise_cancellation_level": catalog.String("Active"),
				"clamp_force":              catalog.Number(4.2),
				"padding_material":         catalog.String("Memory foam"),
				"foldability":              catalog.Boolean(false),
				"case_size":                catalog.String("Large"),
				"usage_context":            catalog.Array("home", "office", "travel"),
			},
			Assets: []catalog.VisualAsset{
				{AssetType: "main_image", URL: "https://example.com/airpods-max-main.jpg"},
				{AssetType: "detail_images", URL: "https://example.com/airpods-max-detail1.jpg"},
				{AssetType: "detail_images", URL: "https://example.com/airpods-max-detail2.jpg"},
				{AssetType: "spec_callouts", URL: "https://example.com/airpods-max-spec1.jpg"},
			},
		},
		{
			ProductID: "airpods-pro",
			Name:      "AirPods Pro",
			Category:  "Earbuds",
			Attributes: map[string]catalog.Value{
				"price":                    catalog.Number(249),
				"weight":                   catalog.Number(56),
				"battery_life":             catalog.Number(6),
				"noise_cancellation":       catalog.Number(90),
				"material":                 catalog.String("Plastic"),
				"build_quality":            catalog.String("Good"),
				"driver_type":              catalog.String("Custom high-excursion"),
				"noise_cancellation_level": catalog.String("Active"),
				"clamp_force":              catalog.Number(0),
				"padding_material":         catalog.String("Silicone tips"),
				"foldability":              catalog.Boolean(true),
				"case_size":                catalog.String("Small"),
				"usage_context":            catalog.Array("travel", "gym", "commute", "work"),
			},
			Assets: []catalog.VisualAsset{
				{AssetType: "main_image", URL: "https://example.com/airpods-pro-main.jpg"},
				{AssetType: "detail_images", URL: "https://example.com/airpods-pro-detail1.jpg"},
				{AssetType: "spec_callouts", URL: "https://example.com/airpods-pro-spec1.jpg"},
			},
		},
		{
			ProductID: "sony-wh1000xm5",
			Name:      "Sony WH-1000XM5",
			Category:  "Headphones",
			Attributes: map[string]catalog.Value{
				"price":                    catalog.Number(399),
				"weight":                   catalog.Number(250),
				"battery_life":             catalog.Number(30),
				"noise_cancellation":       catalog.Number(98),
				"material":                 catalog.String("Plastic"),
				"build_quality":            catalog.String("Excellent"),
				"driver_type":              catalog.String("30mm"),
				"noise_cancellation_level": catalog.String("Active"),
				"clamp_force":              catalog.Number(3.8),
				"padding_material":         catalog.String("Protein leather"),
				"foldability":              catalog.Boolean(true),
				"case_size":                catalog.String("Medium"),
				"usage_context":            catalog.Array("travel", "home", "office", "commute"),
			},
			Assets: []catalog.VisualAsset{
				{AssetType: "main_image", URL: "https://example.com/sony-wh1000xm5-main.jpg"},
				{AssetType: "detail_images", URL: "https://example.com/sony-wh1000xm5-detail1.jpg"},
				{AssetType: "spec_callouts", URL: "https://example.com/sony-wh1000xm5-spec1.jpg"},
			},
		},
	}
}
