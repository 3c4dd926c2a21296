// Package docstoretest holds the conformance suite every docstore.Backend
// must pass.
package docstoretest

import (
	"affiliate/pkg/docstore"
	"context"
	"errors"
	"regexp"
	"slices"
	"testing"
)

var objectIDPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

// RunBackendTests runs the common suite against backends produced by
// newBackend. Each subtest gets its own backend and its own collection names,
// so the suite is safe to run against a shared database.
func RunBackendTests(t *testing.T, newBackend func(t *testing.T) docstore.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		b := newBackend(t)
		if err := b.Ping(ctx); err != nil {
			t.Fatalf("ping: %v", err)
		}
	})

	t.Run("Insert and FindOne by id", func(t *testing.T) {
		b := newBackend(t)
		coll := collection("items")

		id, err := b.Insert(ctx, coll, docstore.Document{"title": "Grinder", "tags": []any{"burr"}})
		if err != nil {
			t.Fatal(err)
		}
		if !objectIDPattern.MatchString(id) {
			t.Fatalf("expected 24 hex id, got %q", id)
		}

		doc, err := b.FindOne(ctx, coll, docstore.ByID(id))
		if err != nil {
			t.Fatal(err)
		}
		if doc == nil {
			t.Fatal("expected document, got nil")
		}

		out := docstore.Serialize(doc)
		if out["id"] != id {
			t.Fatalf("expected id=%s, got %v", id, out["id"])
		}
		if out["title"] != "Grinder" {
			t.Fatalf("expected title=Grinder, got %v", out["title"])
		}
	})

	t.Run("FindOne missing", func(t *testing.T) {
		b := newBackend(t)
		coll := collection("items")

		for _, filter := range []docstore.Filter{
			docstore.ByID(docstore.NewID()),
			docstore.ByID("not-an-object-id"),
			docstore.ByField("slug", "nope"),
		} {
			doc, err := b.FindOne(ctx, coll, filter)
			if err != nil {
				t.Fatalf("filter %+v: %v", filter, err)
			}
			if doc != nil {
				t.Fatalf("filter %+v: expected nil, got %v", filter, doc)
			}
		}
	})

	t.Run("Find empty collection", func(t *testing.T) {
		b := newBackend(t)
		docs, err := b.Find(ctx, collection("empty"), docstore.Filter{}, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(docs) != 0 {
			t.Fatalf("expected 0 docs, got %d", len(docs))
		}
	})

	t.Run("Find with filters", func(t *testing.T) {
		b := newBackend(t)
		coll := collection("products")
		seed(t, b, coll,
			docstore.Document{"title": "Dark Roast", "category": "beans", "featured": true, "tags": []any{}},
			docstore.Document{"title": "Kettle", "description": "Goes with DARK beans", "category": "brewing", "featured": false, "tags": []any{}},
			docstore.Document{"title": "Scale", "category": "brewing", "featured": true, "tags": []any{"precision", "Darkmode"}},
			docstore.Document{"title": "Filter papers", "category": "brewing", "featured": false, "tags": []any{"paper"}},
		)

		tests := []struct {
			name   string
			filter docstore.Filter
			want   []string
		}{
			{"empty", docstore.Filter{}, []string{"Dark Roast", "Filter papers", "Kettle", "Scale"}},
			{"string equals", docstore.ByField("category", "brewing"), []string{"Filter papers", "Kettle", "Scale"}},
			{"bool equals", docstore.ByField("featured", true), []string{"Dark Roast", "Scale"}},
			{"combined", docstore.Filter{Equals: map[string]any{"category": "brewing", "featured": false}}, []string{"Filter papers", "Kettle"}},
			{"search", searchFilter("dark"), []string{"Dark Roast", "Kettle", "Scale"}},
			{"search and equals", docstore.Filter{Equals: map[string]any{"featured": true}, Search: searchFilter("dark").Search}, []string{"Dark Roast", "Scale"}},
			{"search is literal", searchFilter("d.rk"), nil},
			{"search percent", searchFilter("%"), nil},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				docs, err := b.Find(ctx, coll, tt.filter, 0)
				if err != nil {
					t.Fatal(err)
				}
				got := titles(docs)
				if !slices.Equal(got, tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			})
		}
	})

	t.Run("Find search folds non-ASCII case", func(t *testing.T) {
		b := newBackend(t)
		coll := collection("products")
		seed(t, b, coll,
			docstore.Document{"title": "CAFÉ crème", "tags": []any{}},
			docstore.Document{"title": "Teapot", "tags": []any{"ÉTÉ"}},
			docstore.Document{"title": "Kettle", "tags": []any{}},
		)

		tests := []struct {
			term string
			want []string
		}{
			{"café", []string{"CAFÉ crème"}},
			{"CRÈME", []string{"CAFÉ crème"}},
			{"été", []string{"Teapot"}},
		}

		for _, tt := range tests {
			docs, err := b.Find(ctx, coll, searchFilter(tt.term), 0)
			if err != nil {
				t.Fatal(err)
			}
			if got := titles(docs); !slices.Equal(got, tt.want) {
				t.Fatalf("search %q: expected %v, got %v", tt.term, tt.want, got)
			}
		}
	})

	t.Run("Find limit", func(t *testing.T) {
		b := newBackend(t)
		coll := collection("limited")
		seed(t, b, coll,
			docstore.Document{"title": "a"},
			docstore.Document{"title": "b"},
			docstore.Document{"title": "c"},
		)

		docs, err := b.Find(ctx, coll, docstore.Filter{}, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(docs) != 2 {
			t.Fatalf("expected 2 docs, got %d", len(docs))
		}
	})

	t.Run("Unique index", func(t *testing.T) {
		b := newBackend(t)
		coll := collection("category")

		if err := b.EnsureUniqueIndex(ctx, coll, "slug"); err != nil {
			t.Fatal(err)
		}
		// Idempotent.
		if err := b.EnsureUniqueIndex(ctx, coll, "slug"); err != nil {
			t.Fatal(err)
		}

		if _, err := b.Insert(ctx, coll, docstore.Document{"name": "Espresso", "slug": "espresso"}); err != nil {
			t.Fatal(err)
		}
		_, err := b.Insert(ctx, coll, docstore.Document{"name": "Espresso again", "slug": "espresso"})
		if !errors.Is(err, docstore.ErrDuplicateKey) {
			t.Fatalf("expected ErrDuplicateKey, got %v", err)
		}
		if _, err := b.Insert(ctx, coll, docstore.Document{"name": "Pour over", "slug": "pour-over"}); err != nil {
			t.Fatal(err)
		}

		other := collection("other")
		if _, err := b.Insert(ctx, other, docstore.Document{"slug": "espresso"}); err != nil {
			t.Fatalf("unique index leaked into another collection: %v", err)
		}
	})

	t.Run("CollectionNames", func(t *testing.T) {
		b := newBackend(t)
		coll := collection("named")
		seed(t, b, coll, docstore.Document{"title": "x"})

		names, err := b.CollectionNames(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Contains(names, coll) {
			t.Fatalf("expected %s in %v", coll, names)
		}
	})
}

func collection(prefix string) string {
	return prefix + "_" + docstore.NewID()
}

func searchFilter(term string) docstore.Filter {
	return docstore.Filter{Search: &docstore.Search{
		Term:   term,
		Fields: []string{"title", "description", "tags"},
	}}
}

func seed(t *testing.T, b docstore.Backend, coll string, docs ...docstore.Document) {
	t.Helper()
	for _, doc := range docs {
		if _, err := b.Insert(context.Background(), coll, doc); err != nil {
			t.Fatal(err)
		}
	}
}

func titles(docs []docstore.Document) []string {
	var out []string
	for _, doc := range docs {
		if title, ok := doc["title"].(string); ok {
			out = append(out, title)
		}
	}
	slices.Sort(out)
	return out
}
