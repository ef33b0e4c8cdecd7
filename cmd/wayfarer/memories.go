package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/unowned-ai/wayfarer/pkg/app"
	"github.com/unowned-ai/wayfarer/pkg/memories"
)

var (
	albumOrderFlag bool
	yesFlag        bool
)

var memoriesCmd = &cobra.Command{
	Use:   "memories",
	Short: "Manage travel memories",
	Long:  `Pin, list, edit, move, and delete memories in the journal.`,
}

var listMemoriesCmd = &cobra.Command{
	Use:   "list",
	Short: "List memories",
	Long:  `List every memory, newest first, or in trip-date order with --album.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeServices(svc)

		records := svc.Coordinator.Records()
		if albumOrderFlag {
			records = svc.Coordinator.Album()
		}
		printMemoryTable(svc.Coordinator, records)
		return nil
	},
}

var searchMemoriesCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search memories by place name or notes",
	Long:  `List memories whose place name or notes contain the query, ignoring case.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeServices(svc)

		printMemoryTable(svc.Coordinator, svc.Coordinator.Filter(args[0]))
		return nil
	},
}

var getMemoryCmd = &cobra.Command{
	Use:   "get [memory-id]",
	Short: "Get a memory by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeServices(svc)

		m, err := svc.Coordinator.Get(args[0])
		if errors.Is(err, app.ErrNotFound) {
			return fmt.Errorf("memory not found: %s", args[0])
		}
		if err != nil {
			return err
		}
		printMemory(svc.Coordinator, m)
		return nil
	},
}

var createMemoryCmd = &cobra.Command{
	Use:   "create",
	Short: "Pin a new memory",
	Long: `Pin a new memory at --lat/--lng. Longitudes outside -180..180 are wrapped around the
globe and latitudes are clamped to the poles.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
			return errors.New("--lat and --lng are required")
		}
		lat, _ := cmd.Flags().GetFloat64("lat")
		lng, _ := cmd.Flags().GetFloat64("lng")

		d, err := draftFromFlags(cmd, memories.Draft{})
		if err != nil {
			return err
		}
		photoURLs, _ := cmd.Flags().GetStringSlice("photo")
		for _, u := range photoURLs {
			d.Photos = append(d.Photos, memories.NewPhoto(u, ""))
		}

		svc, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeServices(svc)
		if err := ensureLogin(cmd, svc); err != nil {
			return err
		}

		if err := svc.Coordinator.BeginCapture(lat, lng); err != nil {
			return fmt.Errorf("invalid location: %w", err)
		}
		m, err := svc.Coordinator.Save(cmd.Context(), d)
		if err != nil {
			return fmt.Errorf("failed to save memory: %w", err)
		}
		printMemory(svc.Coordinator, m)
		return nil
	},
}

var updateMemoryCmd = &cobra.Command{
	Use:   "update [memory-id]",
	Short: "Update a memory",
	Long:  `Update the place name, notes, trip date, or coordinates of a memory. Omitted flags keep their values.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		svc, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeServices(svc)
		if err := ensureLogin(cmd, svc); err != nil {
			return err
		}

		c := svc.Coordinator
		if err := c.BeginEdit(id); errors.Is(err, app.ErrNotFound) {
			return fmt.Errorf("memory not found: %s", id)
		} else if err != nil {
			return err
		}

		latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
		if latSet || lngSet {
			cur := c.State().EditPoint
			lat, lng := cur.Lat, cur.Lng
			if latSet {
				lat, _ = cmd.Flags().GetFloat64("lat")
			}
			if lngSet {
				lng, _ = cmd.Flags().GetFloat64("lng")
			}
			if err := c.BeginPickLocation(); err != nil {
				return err
			}
			if err := c.PickLocation(lat, lng); err != nil {
				return fmt.Errorf("invalid location: %w", err)
			}
		}

		d, err := c.EditDraft()
		if err != nil {
			return err
		}
		if d, err = draftFromFlags(cmd, d); err != nil {
			return err
		}
		m, err := c.Save(cmd.Context(), d)
		if err != nil {
			return fmt.Errorf("failed to update memory: %w", err)
		}
		fmt.Println("Memory updated successfully!")
		printMemory(c, m)
		return nil
	},
}

var moveMemoryCmd = &cobra.Command{
	Use:   "move [memory-id] [lat] [lng]",
	Short: "Move a memory's pin",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var lat, lng float64
		if _, err := fmt.Sscan(args[1], &lat); err != nil {
			return fmt.Errorf("invalid latitude %q", args[1])
		}
		if _, err := fmt.Sscan(args[2], &lng); err != nil {
			return fmt.Errorf("invalid longitude %q", args[2])
		}

		svc, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeServices(svc)
		if err := ensureLogin(cmd, svc); err != nil {
			return err
		}

		c := svc.Coordinator
		if err := c.Select(args[0]); err != nil {
			return fmt.Errorf("memory not found: %s", args[0])
		}
		if err := c.BeginReposition(); err != nil {
			return err
		}
		if err := c.DragTo(lat, lng); err != nil {
			c.CancelReposition()
			return fmt.Errorf("invalid location: %w", err)
		}
		m, err := c.ConfirmReposition(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to move memory: %w", err)
		}
		printMemory(c, m)
		return nil
	},
}

var deleteMemoryCmd = &cobra.Command{
	Use:   "delete [memory-id]",
	Short: "Delete a memory",
	Long:  `Permanently delete a memory. Asks for confirmation unless --yes is given.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		svc, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeServices(svc)
		if err := ensureLogin(cmd, svc); err != nil {
			return err
		}

		deleted, err := svc.Coordinator.Delete(cmd.Context(), id, confirmOnTerminal(cmd))
		if errors.Is(err, app.ErrNotFound) {
			return fmt.Errorf("memory not found: %s", id)
		}
		if err != nil {
			return fmt.Errorf("failed to delete memory: %w", err)
		}
		if !deleted {
			fmt.Println("Cancelled.")
			return nil
		}
		fmt.Printf("Memory %s deleted.\n", id)
		return nil
	},
}

// confirmOnTerminal asks on stdin unless --yes was given.
func confirmOnTerminal(cmd *cobra.Command) app.Confirmer {
	return func(_ context.Context, prompt string) bool {
		if yesFlag {
			return true
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
		var answer string
		fmt.Fscanln(cmd.InOrStdin(), &answer)
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}

// draftFromFlags overlays the --name, --description and --date flags that
// were set onto d.
func draftFromFlags(cmd *cobra.Command, d memories.Draft) (memories.Draft, error) {
	if cmd.Flags().Changed("name") {
		d.LocationName, _ = cmd.Flags().GetString("name")
	}
	if cmd.Flags().Changed("description") {
		d.Description, _ = cmd.Flags().GetString("description")
	}
	if cmd.Flags().Changed("date") {
		s, _ := cmd.Flags().GetString("date")
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return d, fmt.Errorf("invalid --date %q, expected %s", s, dateLayout)
		}
		d.Date = t.UnixMilli()
	}
	return d, nil
}

func addMemoryFieldFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("lat", 0, "Latitude in degrees")
	cmd.Flags().Float64("lng", 0, "Longitude in degrees")
	cmd.Flags().String("name", "", "Place name")
	cmd.Flags().String("description", "", "Notes about the visit")
	cmd.Flags().String("date", "", "Trip date (YYYY-MM-DD), defaults to today")
}

func initMemoriesCmd() {
	listMemoriesCmd.Flags().BoolVar(&albumOrderFlag, "album", false, "Order by trip date, oldest first")

	addMemoryFieldFlags(createMemoryCmd)
	createMemoryCmd.Flags().StringSlice("photo", nil, "Already hosted photo URL (repeatable)")
	addMemoryFieldFlags(updateMemoryCmd)

	deleteMemoryCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Do not ask for confirmation")

	for _, c := range []*cobra.Command{createMemoryCmd, updateMemoryCmd, moveMemoryCmd, deleteMemoryCmd} {
		addPasswordFlag(c)
	}

	memoriesCmd.AddCommand(listMemoriesCmd, searchMemoriesCmd, getMemoryCmd, createMemoryCmd,
		updateMemoryCmd, moveMemoryCmd, deleteMemoryCmd)
}
