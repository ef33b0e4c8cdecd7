package mcp

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/unowned-ai/wayfarer/pkg/app"
	"github.com/unowned-ai/wayfarer/pkg/memories"
)

// dateLayout is the trip date format tools accept and return.
const dateLayout = "2006-01-02"

// Journal is the coordinator as seen by tool handlers. Tools that walk the
// coordinator through several view steps hold flow so concurrent calls do
// not interleave their steps.
type Journal struct {
	coord *app.Coordinator
	flow  sync.Mutex
}

func NewJournal(coord *app.Coordinator) *Journal {
	return &Journal{coord: coord}
}

// memoryView is the JSON shape returned by tools.
type memoryView struct {
	memories.Memory
	TripDate string `json:"tripDate"`
	Status   string `json:"status"`
}

func (j *Journal) view(m memories.Memory) memoryView {
	return memoryView{
		Memory:   m,
		TripDate: time.UnixMilli(m.Date).UTC().Format(dateLayout),
		Status:   j.coord.StatusOf(m.ID).String(),
	}
}

func jsonResult(v interface{}) *mcp.CallToolResult {
	out, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize result to JSON: %v", err))
	}
	return mcp.NewToolResultText(string(out))
}

func stringArg(req mcp.CallToolRequest, name string) (string, bool) {
	v, ok := req.Params.Arguments[name].(string)
	return v, ok
}

func numberArg(req mcp.CallToolRequest, name string) (float64, bool) {
	v, ok := req.Params.Arguments[name].(float64)
	return v, ok
}

// parseDate accepts YYYY-MM-DD and returns Unix milliseconds at UTC midnight.
func parseDate(s string) (int64, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("date must look like %s: %w", dateLayout, err)
	}
	return t.UnixMilli(), nil
}

// splitList splits a comma-separated argument, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
