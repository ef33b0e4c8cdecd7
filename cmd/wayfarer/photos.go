package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/unowned-ai/wayfarer/pkg/app"
)

var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Manage photos attached to memories",
}

var uploadPhotoCmd = &cobra.Command{
	Use:   "upload [memory-id] [image-file]",
	Short: "Upload a photo and attach it to a memory",
	Long: `Upload an image to the configured image host and attach it to a memory. When no image
host is configured, or the upload fails, the photo is downscaled and stored inline instead.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, path := args[0], args[1]
		caption, _ := cmd.Flags().GetString("caption")

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
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
		if _, err := c.Get(id); errors.Is(err, app.ErrNotFound) {
			return fmt.Errorf("memory not found: %s", id)
		}
		photo, err := c.AttachPhoto(cmd.Context(), filepath.Base(path), data, caption)
		if err != nil {
			return fmt.Errorf("failed to process photo: %w", err)
		}

		if err := c.BeginEdit(id); err != nil {
			return err
		}
		d, err := c.EditDraft()
		if err != nil {
			return err
		}
		d.Photos = append(d.Photos, photo)
		m, err := c.Save(cmd.Context(), d)
		if err != nil {
			return fmt.Errorf("failed to attach photo: %w", err)
		}
		printMemory(c, m)
		return nil
	},
}

func initPhotosCmd() {
	uploadPhotoCmd.Flags().String("caption", "", "Optional photo caption")
	addPasswordFlag(uploadPhotoCmd)
	photosCmd.AddCommand(uploadPhotoCmd)
}
