package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/sqlite"
)

func main() {
	ctx := context.Background()

	path := os.Getenv("FLOW_SQLITE_PATH")
	if path == "" {
		path = filepath.Join(os.TempDir(), "flow-example.db")
	}

	store, err := sqlite.Open(ctx, path)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc := flow.NewService(store)
	editor := flow.NewEditor(svc, flow.EditorConfig{
		AutosaveDelay: 100 * time.Millisecond,
		Logger:        logger,
	})
	defer editor.Close(ctx)

	// Pick up where the last session left off, if anywhere.
	editor.Open(ctx)
	fmt.Printf("opened %q (%s)\n", editor.Title(), orNone(editor.WorkflowID()))

	// ── Import a portable schema ──────────────────────────────────────
	doc := []byte(`{
  "nodes": [
    {"id": "intake", "name": "Intake", "description": "Collect the request", "isStart": true},
    {"id": "review", "name": "Review"},
    {"id": "done", "name": "Done"}
  ],
  "edges": [
    {"id": "e1", "source": "intake", "target": "review", "condition": "complete"},
    {"id": "e2", "source": "review", "target": "done", "condition": "approved"},
    {"id": "e3", "source": "review", "target": "intake", "condition": "rejected"}
  ]
}`)
	if err := editor.Import(doc); err != nil {
		log.Fatalf("import: %v", err)
	}
	fmt.Printf("imported, title is now %q\n", editor.Title())

	// A document that fails validation leaves the editor alone.
	if err := editor.Import([]byte(`{"nodes": [], "edges": [{"source": "a", "target": "b"}]}`)); err != nil {
		fmt.Printf("rejected: %v\n", err)
	}

	// ── Edit ──────────────────────────────────────────────────────────
	err = editor.Update(func(g *flow.Graph) error {
		escalate := g.AddNode("Escalate")
		if _, err := g.AddEdge("review", escalate.ID); err != nil {
			return err
		}
		return g.RenameNode("done", "closed")
	})
	if err != nil {
		log.Fatalf("edit: %v", err)
	}

	// Self-loops are refused and change nothing.
	if err := editor.Update(func(g *flow.Graph) error {
		_, err := g.AddEdge("review", "review")
		return err
	}); err != nil {
		fmt.Printf("refused: %v\n", err)
	}

	// Let the autosave fire.
	time.Sleep(300 * time.Millisecond)
	fmt.Printf("saved as %s, dirty=%v\n", editor.WorkflowID(), editor.IsDirty())

	// ── Export ────────────────────────────────────────────────────────
	name, data, err := editor.Export()
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Printf("\n%s:\n%s\n", name, data)

	if _, issues := editor.Preview(); len(issues) > 0 {
		fmt.Println("issues:")
		for _, is := range issues {
			fmt.Println(" -", is.Message)
		}
	}

	// ── Saved workflows ───────────────────────────────────────────────
	list, err := svc.List(ctx)
	if err != nil {
		log.Fatalf("list: %v", err)
	}
	fmt.Printf("\nsaved workflows (%d):\n", len(list))
	for _, w := range list {
		fmt.Printf("  %s  %-20q  updated %s\n", w.ID, w.Title, time.UnixMilli(w.UpdatedAt).Format(time.RFC3339))
	}
}

func orNone(s string) string {
	if s == "" {
		return "unsaved"
	}
	return s
}
