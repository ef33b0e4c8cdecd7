package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/unowned-ai/wayfarer/pkg/app"
	"github.com/unowned-ai/wayfarer/pkg/memories"
)

const dateLayout = "2006-01-02"

// formatMillis renders a Unix millisecond timestamp in RFC3339.
func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Format(time.RFC3339)
}

func formatTripDate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(dateLayout)
}

func printMemoryTable(c *app.Coordinator, records []memories.Memory) {
	if len(records) == 0 {
		fmt.Println("No memories found.")
		return
	}
	fmt.Println("ID | Place | Lat, Lng | Trip Date | Photos | Status")
	fmt.Println("------------------------------------------------------------")
	for _, m := range records {
		fmt.Printf("%s | %s | %.4f, %.4f | %s | %d | %s\n",
			m.ID, m.LocationName, m.Lat, m.Lng, formatTripDate(m.Date), len(m.Photos), c.StatusOf(m.ID))
	}
}

func printMemory(c *app.Coordinator, m memories.Memory) {
	fmt.Printf("ID:          %s\n", m.ID)
	fmt.Printf("Place:       %s\n", m.LocationName)
	fmt.Printf("Location:    %.6f, %.6f\n", m.Lat, m.Lng)
	fmt.Printf("Trip Date:   %s\n", formatTripDate(m.Date))
	fmt.Printf("Created At:  %s\n", formatMillis(m.CreatedAt))
	fmt.Printf("Status:      %s\n", c.StatusOf(m.ID))
	if m.Description != "" {
		fmt.Printf("Description: %s\n", m.Description)
	}
	if len(m.Photos) == 0 {
		return
	}
	fmt.Println("Photos:")
	for _, p := range m.Photos {
		url := p.URL
		if strings.HasPrefix(url, "data:") {
			url = fmt.Sprintf("(inline, %d bytes)", len(url))
		}
		if p.Caption != "" {
			fmt.Printf("  - %s  %s\n", url, p.Caption)
		} else {
			fmt.Printf("  - %s\n", url)
		}
	}
}
