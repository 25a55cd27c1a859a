package doctree

import "testing"

func TestDocTree_TextOrder(t *testing.T) {
	tree := &DocTree{
		Title: "file-name",
		Children: []*DocNode{
			{
				Title: "Nile Explorer",
				Text:  "A wonderful trip.",
				Children: []*DocNode{
					{Title: "Itinerary", Text: "Day 1: Luxor\n\nDay 2: Aswan"},
					{Title: "Includes", Text: "- Breakfast"},
				},
			},
			{Text: "  trailing note  "},
		},
	}

	want := "Nile Explorer\nA wonderful trip.\nItinerary\nDay 1: Luxor\n\nDay 2: Aswan\nIncludes\n- Breakfast\ntrailing note"
	if got := tree.Text(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDocTree_TextEmpty(t *testing.T) {
	tree := &DocTree{Title: "empty"}
	if got := tree.Text(); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestBuilder_Nesting(t *testing.T) {
	b := NewBuilder("\n")
	b.Add("Cover note")
	b.Heading(1, "Nile Explorer")
	b.Add("Four days.")
	b.Heading(2, "Itinerary")
	b.Heading(3, "Day 1: Luxor")
	b.Add("Karnak.")
	b.Add("Luxor temple.")
	b.Break()
	b.Add("Dinner cruise.")
	b.Heading(2, "Includes")
	b.Add("- Breakfast")
	b.Heading(1, "Terms")

	nodes := b.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("expected cover, tour and terms nodes, got %d", len(nodes))
	}
	if nodes[0].Title != "" || nodes[0].Text != "Cover note" {
		t.Errorf("unexpected leading node %+v", nodes[0])
	}
	tour := nodes[1]
	if len(tour.Children) != 2 || tour.Children[1].Title != "Includes" {
		t.Fatalf("expected Itinerary and Includes under the tour, got %+v", tour.Children)
	}
	day := tour.Children[0].Children[0]
	if day.Text != "Karnak.\nLuxor temple.\n\nDinner cruise." {
		t.Errorf("unexpected day text %q", day.Text)
	}
	if nodes[2].Title != "Terms" || len(nodes[2].Children) != 0 {
		t.Errorf("unexpected last node %+v", nodes[2])
	}
}

func TestBuilder_Empty(t *testing.T) {
	if nodes := NewBuilder("\n").Nodes(); len(nodes) != 0 {
		t.Errorf("expected no nodes, got %d", len(nodes))
	}
}
