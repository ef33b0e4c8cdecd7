package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Look up places on the map",
}

var searchPlacesCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find a place's coordinates by name",
	Long:  `Search OpenStreetMap Nominatim for a city, landmark or address and print coordinates usable with 'memories create'.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		svc, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeServices(svc)

		places, err := svc.Coordinator.SearchPlaces(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		if len(places) == 0 {
			fmt.Println("No places found.")
			return nil
		}
		fmt.Println("Lat, Lng | Type | Name")
		fmt.Println("------------------------------------------------------------")
		for _, p := range places {
			fmt.Printf("%.5f, %.5f | %s | %s\n", p.Point.Lat, p.Point.Lng, p.Type, p.Name)
		}
		return nil
	},
}

func initPlacesCmd() {
	searchPlacesCmd.Flags().Int("limit", 5, "Maximum number of results")
	placesCmd.AddCommand(searchPlacesCmd)
}
