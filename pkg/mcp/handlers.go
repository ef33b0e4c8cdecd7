package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/unowned-ai/wayfarer/pkg/app"
	"github.com/unowned-ai/wayfarer/pkg/memories"
)

// RegisterPingTool registers the simple ping tool.
func RegisterPingTool(s *server.MCPServer) {
	pingTool := mcp.NewTool("ping",
		mcp.WithDescription("Responds with 'pong' to check if the Wayfarer MCP server is alive."),
	)
	s.AddTool(pingTool, pingHandler)
}

func pingHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("pong_wayfarer"), nil
}

// RegisterListMemoriesTool registers the list_memories tool.
func RegisterListMemoriesTool(s *server.MCPServer, j *Journal) {
	tool := mcp.NewTool("list_memories",
		mcp.WithDescription("Lists travel memories, newest first. Optionally filters by a case-insensitive substring of the place name or description."),
		mcp.WithString("query", mcp.Description("Optional text to filter by.")),
		mcp.WithString("order", mcp.DefaultString("created"), mcp.Description("'created' (newest first) or 'trip' (album order, by trip date).")),
	)
	s.AddTool(tool, listMemoriesHandler(j))
}

func listMemoriesHandler(j *Journal) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, _ := stringArg(request, "query")
		order, _ := stringArg(request, "order")

		// A refresh already in flight will bring the list up to date.
		if err := j.coord.Refresh(ctx); err != nil && !errors.Is(err, app.ErrActionPending) {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load memories: %v", err)), nil
		}

		records := j.coord.Filter(query)
		switch order {
		case "", "created":
		case "trip":
			memories.SortByTripDate(records)
		default:
			return mcp.NewToolResultError("'order' must be 'created' or 'trip'."), nil
		}

		views := make([]memoryView, 0, len(records))
		for _, m := range records {
			views = append(views, j.view(m))
		}
		return jsonResult(views), nil
	}
}

// RegisterGetMemoryTool registers the get_memory tool.
func RegisterGetMemoryTool(s *server.MCPServer, j *Journal) {
	tool := mcp.NewTool("get_memory",
		mcp.WithDescription("Retrieves one memory by its id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The memory id.")),
	)
	s.AddTool(tool, getMemoryHandler(j))
}

func getMemoryHandler(j *Journal) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		if !ok || id == "" {
			return mcp.NewToolResultError("'id' parameter is required and must be a non-empty string."), nil
		}
		m, err := j.coord.Get(id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Memory '%s' not found.", id)), nil
		}
		return jsonResult(j.view(m)), nil
	}
}

// RegisterCreateMemoryTool registers the create_memory tool.
func RegisterCreateMemoryTool(s *server.MCPServer, j *Journal) {
	tool := mcp.NewTool("create_memory",
		mcp.WithDescription("Pins a new memory on the map. Longitudes outside -180..180 are wrapped."),
		mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude in degrees.")),
		mcp.WithNumber("lng", mcp.Required(), mcp.Description("Longitude in degrees.")),
		mcp.WithString("location_name", mcp.Description("Place name. Defaults to 'Unnamed place'.")),
		mcp.WithString("description", mcp.Description("Optional notes.")),
		mcp.WithString("date", mcp.Description("Optional trip date, YYYY-MM-DD. Defaults to today.")),
		mcp.WithString("photo_urls", mcp.Description("Optional comma-separated list of already hosted photo URLs.")),
	)
	s.AddTool(tool, createMemoryHandler(j))
}

func createMemoryHandler(j *Journal) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		lat, latOk := numberArg(request, "lat")
		lng, lngOk := numberArg(request, "lng")
		if !latOk || !lngOk {
			return mcp.NewToolResultError("'lat' and 'lng' parameters are required numbers."), nil
		}

		d := memories.Draft{}
		d.LocationName, _ = stringArg(request, "location_name")
		d.Description, _ = stringArg(request, "description")
		if date, ok := stringArg(request, "date"); ok && date != "" {
			ms, err := parseDate(date)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			d.Date = ms
		}
		if urls, ok := stringArg(request, "photo_urls"); ok {
			for _, u := range splitList(urls) {
				d.Photos = append(d.Photos, memories.NewPhoto(u, ""))
			}
		}

		j.flow.Lock()
		defer j.flow.Unlock()
		if err := j.coord.BeginCapture(lat, lng); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid location: %v", err)), nil
		}
		m, err := j.coord.Save(ctx, d)
		if err != nil {
			j.coord.ShowMap()
			return mcp.NewToolResultError(fmt.Sprintf("Failed to save memory: %v", err)), nil
		}
		return jsonResult(j.view(m)), nil
	}
}

// RegisterUpdateMemoryTool registers the update_memory tool.
func RegisterUpdateMemoryTool(s *server.MCPServer, j *Journal) {
	tool := mcp.NewTool("update_memory",
		mcp.WithDescription("Updates the name, description or trip date of a memory. Omitted fields are kept."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The memory id.")),
		mcp.WithString("location_name", mcp.Description("Optional new place name.")),
		mcp.WithString("description", mcp.Description("Optional new notes.")),
		mcp.WithString("date", mcp.Description("Optional new trip date, YYYY-MM-DD.")),
	)
	s.AddTool(tool, updateMemoryHandler(j))
}

func updateMemoryHandler(j *Journal) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		if !ok || id == "" {
			return mcp.NewToolResultError("'id' parameter is required."), nil
		}
		name, nameOk := stringArg(request, "location_name")
		desc, descOk := stringArg(request, "description")
		date, dateOk := stringArg(request, "date")
		if !nameOk && !descOk && !dateOk {
			return mcp.NewToolResultError("No update fields provided (use location_name, description, or date)."), nil
		}

		j.flow.Lock()
		defer j.flow.Unlock()
		if err := j.coord.BeginEdit(id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Memory '%s' not found.", id)), nil
		}
		d, err := j.coord.EditDraft()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if nameOk {
			d.LocationName = name
		}
		if descOk {
			d.Description = desc
		}
		if dateOk {
			ms, err := parseDate(date)
			if err != nil {
				j.coord.CancelEdit()
				return mcp.NewToolResultError(err.Error()), nil
			}
			d.Date = ms
		}

		m, err := j.coord.Save(ctx, d)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to update memory '%s': %v", id, err)), nil
		}
		return jsonResult(j.view(m)), nil
	}
}

// RegisterMoveMemoryTool registers the move_memory tool.
func RegisterMoveMemoryTool(s *server.MCPServer, j *Journal) {
	tool := mcp.NewTool("move_memory",
		mcp.WithDescription("Moves a memory's pin to new coordinates."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The memory id.")),
		mcp.WithNumber("lat", mcp.Required(), mcp.Description("New latitude in degrees.")),
		mcp.WithNumber("lng", mcp.Required(), mcp.Description("New longitude in degrees.")),
	)
	s.AddTool(tool, moveMemoryHandler(j))
}

func moveMemoryHandler(j *Journal) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		lat, latOk := numberArg(request, "lat")
		lng, lngOk := numberArg(request, "lng")
		if !ok || id == "" || !latOk || !lngOk {
			return mcp.NewToolResultError("'id', 'lat' and 'lng' parameters are required."), nil
		}

		j.flow.Lock()
		defer j.flow.Unlock()
		if err := j.coord.Select(id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Memory '%s' not found.", id)), nil
		}
		if err := j.coord.BeginReposition(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := j.coord.DragTo(lat, lng); err != nil {
			j.coord.CancelReposition()
			return mcp.NewToolResultError(fmt.Sprintf("Invalid location: %v", err)), nil
		}
		m, err := j.coord.ConfirmReposition(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to move memory '%s': %v", id, err)), nil
		}
		return jsonResult(j.view(m)), nil
	}
}

// RegisterDeleteMemoryTool registers the delete_memory tool.
func RegisterDeleteMemoryTool(s *server.MCPServer, j *Journal) {
	tool := mcp.NewTool("delete_memory",
		mcp.WithDescription("Deletes a memory. Requires confirm=true."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The memory id.")),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true to actually delete.")),
	)
	s.AddTool(tool, deleteMemoryHandler(j))
}

func deleteMemoryHandler(j *Journal) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := stringArg(request, "id")
		if !ok || id == "" {
			return mcp.NewToolResultError("'id' parameter is required."), nil
		}
		confirmed, _ := request.Params.Arguments["confirm"].(bool)

		j.flow.Lock()
		defer j.flow.Unlock()
		deleted, err := j.coord.Delete(ctx, id, func(context.Context, string) bool { return confirmed })
		switch {
		case err != nil:
			return mcp.NewToolResultError(fmt.Sprintf("Failed to delete memory '%s': %v", id, err)), nil
		case !deleted:
			return mcp.NewToolResultText(fmt.Sprintf("Memory '%s' was not deleted (confirm was not true).", id)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Memory '%s' deleted successfully.", id)), nil
	}
}

// RegisterAddPhotoTool registers the add_photo tool.
func RegisterAddPhotoTool(s *server.MCPServer, j *Journal) {
	tool := mcp.NewTool("add_photo",
		mcp.WithDescription("Uploads an image file from the local disk and attaches it to a memory."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The memory id.")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to a JPEG, PNG, GIF or WebP file.")),
		mcp.WithString("caption", mcp.Description("Optional caption.")),
	)
	s.AddTool(tool, addPhotoHandler(j))
}

func addPhotoHandler(j *Journal) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, idOk := stringArg(request, "id")
		path, pathOk := stringArg(request, "path")
		caption, _ := stringArg(request, "caption")
		if !idOk || id == "" || !pathOk || path == "" {
			return mcp.NewToolResultError("'id' and 'path' parameters are required."), nil
		}
		if _, err := j.coord.Get(id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Memory '%s' not found.", id)), nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read '%s': %v", path, err)), nil
		}
		photo, err := j.coord.AttachPhoto(ctx, filepath.Base(path), data, caption)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to process photo: %v", err)), nil
		}

		j.flow.Lock()
		defer j.flow.Unlock()
		if err := j.coord.BeginEdit(id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Memory '%s' not found.", id)), nil
		}
		d, err := j.coord.EditDraft()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		d.Photos = append(d.Photos, photo)
		m, err := j.coord.Save(ctx, d)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to attach photo to '%s': %v", id, err)), nil
		}
		return jsonResult(j.view(m)), nil
	}
}

// RegisterSearchPlacesTool registers the search_places tool.
func RegisterSearchPlacesTool(s *server.MCPServer, j *Journal) {
	tool := mcp.NewTool("search_places",
		mcp.WithDescription("Looks up named places (cities, landmarks, addresses) and returns their coordinates, for use with create_memory."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free text to search for.")),
		mcp.WithNumber("limit", mcp.DefaultNumber(5), mcp.Description("Maximum number of results.")),
	)
	s.AddTool(tool, searchPlacesHandler(j))
}

func searchPlacesHandler(j *Journal) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, ok := stringArg(request, "query")
		if !ok || query == "" {
			return mcp.NewToolResultError("'query' parameter is required."), nil
		}
		limit := 5
		if n, ok := numberArg(request, "limit"); ok && n >= 1 {
			limit = int(n)
		}
		places, err := j.coord.SearchPlaces(ctx, query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Place search failed: %v", err)), nil
		}
		return jsonResult(places), nil
	}
}

// RegisterLoginTool registers the login tool.
func RegisterLoginTool(s *server.MCPServer, j *Journal) {
	tool := mcp.NewTool("login",
		mcp.WithDescription("Logs in so that memories can be created, changed and deleted."),
		mcp.WithString("password", mcp.Required(), mcp.Description("The journal password.")),
	)
	s.AddTool(tool, loginHandler(j))
}

func loginHandler(j *Journal) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		password, _ := stringArg(request, "password")
		res, err := j.coord.Login(ctx, password)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Login failed: %v", err)), nil
		}
		if !res.Success {
			msg := "Login failed."
			if res.Err != nil {
				msg = fmt.Sprintf("Login failed: %v", res.Err)
			}
			return mcp.NewToolResultError(msg), nil
		}
		return mcp.NewToolResultText("Logged in."), nil
	}
}
