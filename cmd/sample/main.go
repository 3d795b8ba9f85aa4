// Command sample demonstrates the strand framework with a small
// inventory API covering both routing grammars and every major feature.
//
// Run:
//
//	go run ./cmd/sample
//
// Generate the schema document:
//
//	go run ./cmd/sample -schema                  — print JSON to stdout
//	go run ./cmd/sample -schema -yaml            — print YAML instead
//	go run ./cmd/sample -schema -o openapi.json  — write to file
//
// Then explore:
//
//	GET http://localhost:8080/openapi.json        — schema document
//	GET http://localhost:8080/docs                — interactive docs UI
//	GET http://localhost:8080/app.api.ping        — legacy dotted route
//	GET http://localhost:8080/v1/items            — list items
//	GET http://localhost:8080/v1/items/featured   — featured items
//	GET http://localhost:8080/v1/items/{item_id}  — get item
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/strandkit/strand"
)

func main() {
	schemaFlag := flag.Bool("schema", false, "Print the schema document and exit")
	yamlFlag := flag.Bool("yaml", false, "Print the schema as YAML (requires -schema)")
	outFlag := flag.String("o", "", "Output file for the schema (requires -schema)")
	flag.Parse()

	r := newRouter()

	if *schemaFlag {
		if err := writeSchema(r, *outFlag, *yamlFlag); err != nil {
			slog.Error("schema generation failed", "err", err)
			os.Exit(1)
		}
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	r.Use(strand.Recovery())
	r.Use(strand.RequestID())
	r.Use(strand.Logger(logger))
	r.Use(strand.RateLimit(strand.RateLimitConfig{Rate: 50, Burst: 100}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("starting server", "addr", ":8080", "schema", "http://localhost:8080/openapi.json")

	if err := r.ListenAndServe(ctx, ":8080"); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
	}

	slog.Info("server stopped")
}

func newRouter() *strand.Router {
	r := strand.New(
		strand.WithTitle("Inventory API"),
		strand.WithVersion("1.0.0"),
		strand.WithServers(strand.Server{URL: "http://localhost:8080", Description: "local"}),
	)

	r.ServeSchema("/openapi.json")
	r.ServeSchemaYAML("/openapi.yaml")
	r.ServeDocs("/docs")

	// Legacy dotted routes resolve through the same table as slash routes.
	strand.Get(r, "app.api.ping", handlePing,
		strand.WithSummary("Ping"),
		strand.WithTags("ops"),
	)

	v1 := r.Group("/v1", strand.WithGroupTags("v1"))

	strand.Get(v1, "/items", handleListItems,
		strand.WithSummary("List items"),
		strand.WithDescription("Returns items, optionally filtered by state."),
		strand.WithTags("items"),
	)
	strand.Post(v1, "/items", handleCreateItem,
		strand.WithSummary("Create item"),
		strand.WithTags("items"),
	)

	// The literal route wins over the parameterized one at the same depth.
	strand.Get(v1, "/items/featured", handleFeaturedItems,
		strand.WithSummary("Featured items"),
		strand.WithTags("items"),
	)
	strand.Get(v1, "/items/{item_id}", handleGetItem,
		strand.WithSummary("Get item by ID"),
		strand.WithTags("items"),
	)
	strand.Put(v1, "/items/{item_id}", handleUpdateItem,
		strand.WithSummary("Update item"),
		strand.WithTags("items"),
	)
	strand.Delete(v1, "/items/{item_id}", handleDeleteItem,
		strand.WithSummary("Delete item"),
		strand.WithTags("items"),
	)

	strand.Raw(r, http.MethodGet, "/healthz", handleHealthz, strand.OperationInfo{
		Summary: "Liveness probe",
		Tags:    []string{"ops"},
		Status:  http.StatusOK,
	})

	return r
}

func writeSchema(r *strand.Router, outFile string, asYAML bool) error {
	w := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile) //nolint:gosec // user-provided CLI flag
		if err != nil {
			return err
		}
		defer func() {
			if err := f.Close(); err != nil {
				slog.Error("failed to close output file", "err", err)
			}
		}()
		w = f
	}
	if asYAML {
		return r.WriteSchemaYAML(w)
	}
	return r.WriteSchema(w)
}

// In-memory store
// ---------------------------------------------------------------------------

var store = &itemStore{
	items: map[int]*Item{
		1: {ID: 1, Name: "anvil", State: "active", Price: 49.99, Featured: true, CreatedAt: time.Now()},
		2: {ID: 2, Name: "rope", State: "active", Price: 9.99, CreatedAt: time.Now()},
	},
	nextID: 3,
}

type itemStore struct {
	mu     sync.RWMutex
	items  map[int]*Item
	nextID int
}

func (s *itemStore) list(state string, featuredOnly bool) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		if state != "" && it.State != state {
			continue
		}
		if featuredOnly && !it.Featured {
			continue
		}
		out = append(out, *it)
	}
	return out
}

func (s *itemStore) get(id int) (*Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return nil, false
	}
	cp := *it
	return &cp, true
}

func (s *itemStore) create(name, state string, price float64) *Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := &Item{
		ID:        s.nextID,
		Name:      name,
		State:     state,
		Price:     price,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.items[it.ID] = it
	cp := *it
	return &cp
}

func (s *itemStore) update(id int, name, state string, price float64) (*Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, false
	}
	if name != "" {
		it.Name = name
	}
	if state != "" {
		it.State = state
	}
	if price > 0 {
		it.Price = price
	}
	cp := *it
	return &cp, true
}

func (s *itemStore) delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

// Domain types
// ---------------------------------------------------------------------------

// Item is the core domain entity.
type Item struct {
	ID        int       `json:"id"`
	Name      string    `json:"name" required:"true"`
	State     string    `json:"state" enum:"active,archived"`
	Price     float64   `json:"price"`
	Featured  bool      `json:"featured"`
	CreatedAt time.Time `json:"created_at"`
}

// Request / Response types
// ---------------------------------------------------------------------------

type PingResp struct {
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

type ListItemsReq struct {
	State  string `query:"state" enum:"active,archived" doc:"Filter by state"`
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Max results"`
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Pagination offset"`
}

type ListItemsResp struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
}

type CreateItemReq struct {
	Body struct {
		Name  string  `json:"name" required:"true" minLength:"1" maxLength:"200" doc:"Display name"`
		State string  `json:"state" enum:"active,archived" doc:"Initial state"`
		Price float64 `json:"price" minimum:"0" doc:"Unit price"`
	}
}

type ItemByIDReq struct {
	ItemID int `path:"item_id" doc:"Item ID"`
}

type UpdateItemReq struct {
	ItemID int `path:"item_id" doc:"Item ID"`
	Body   struct {
		Name  string  `json:"name" doc:"Display name"`
		State string  `json:"state" enum:"active,archived" doc:"New state"`
		Price float64 `json:"price" minimum:"0" doc:"Unit price"`
	}
}

// Handlers
// ---------------------------------------------------------------------------

func handlePing(_ context.Context, _ *strand.Void) (*PingResp, error) {
	return &PingResp{Message: "pong", Time: time.Now()}, nil
}

func handleListItems(_ context.Context, req *ListItemsReq) (*ListItemsResp, error) {
	items := store.list(req.State, false)
	total := len(items)

	if req.Offset > len(items) {
		items = nil
	} else {
		items = items[req.Offset:]
	}
	if req.Limit > 0 && req.Limit < len(items) {
		items = items[:req.Limit]
	}

	return &ListItemsResp{Items: items, Total: total}, nil
}

func handleFeaturedItems(_ context.Context, _ *strand.Void) (*ListItemsResp, error) {
	items := store.list("", true)
	return &ListItemsResp{Items: items, Total: len(items)}, nil
}

func handleCreateItem(_ context.Context, req *CreateItemReq) (*Item, error) {
	state := req.Body.State
	if state == "" {
		state = "active"
	}
	return store.create(req.Body.Name, state, req.Body.Price), nil
}

func handleGetItem(_ context.Context, req *ItemByIDReq) (*Item, error) {
	item, ok := store.get(req.ItemID)
	if !ok {
		return nil, strand.Errorf(http.StatusNotFound, "item %d not found", req.ItemID)
	}
	return item, nil
}

func handleUpdateItem(_ context.Context, req *UpdateItemReq) (*Item, error) {
	item, ok := store.update(req.ItemID, req.Body.Name, req.Body.State, req.Body.Price)
	if !ok {
		return nil, strand.Errorf(http.StatusNotFound, "item %d not found", req.ItemID)
	}
	return item, nil
}

func handleDeleteItem(_ context.Context, req *ItemByIDReq) (*strand.Void, error) {
	if !store.delete(req.ItemID) {
		return nil, strand.Errorf(http.StatusNotFound, "item %d not found", req.ItemID)
	}
	return &strand.Void{}, nil
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // best-effort response write
	fmt.Fprintln(w, "ok")
}
