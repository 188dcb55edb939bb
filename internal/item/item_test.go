package item

import "testing"

func TestParseContentClassifiesKinds(t *testing.T) {
	cases := []struct {
		raw     string
		kind    Kind
		content string
	}{
		{"Milk", KindTask, "Milk"},
		{"  Milk  ", KindTask, "Milk"},
		{"# Dairy", KindHeader, "Dairy"},
		{"#Dairy", KindHeader, "Dairy"},
		{"##", KindHeader, "#"},
		{"note: ring the bell twice", KindNote, "ring the bell twice"},
		{"Note:upstairs", KindNote, "upstairs"},
		{"NOTE: shout", KindNote, "shout"},
		{"notebook", KindTask, "notebook"},
		{"note", KindTask, "note"},
	}
	for _, tc := range cases {
		kind, content := ParseContent(tc.raw)
		if kind != tc.kind || content != tc.content {
			t.Fatalf("ParseContent(%q) = %s %q, expected %s %q", tc.raw, kind, content, tc.kind, tc.content)
		}
	}
}

func TestPatchAppliesOnlySetFields(t *testing.T) {
	parent := "itm_parent"
	it := Item{ID: "itm_1", Content: "Milk", Kind: KindTask, Completed: false, ParentID: &parent, Position: 3}

	content := "Oat milk"
	completed := true
	Patch{Content: &content, Completed: &completed}.Apply(&it)

	if it.Content != "Oat milk" || !it.Completed {
		t.Fatalf("patched fields not applied: %+v", it)
	}
	if it.ParentID == nil || *it.ParentID != "itm_parent" || it.Position != 3 {
		t.Fatalf("untouched fields changed: %+v", it)
	}
}

func TestPatchReparentsToRoot(t *testing.T) {
	parent := "itm_parent"
	it := Item{ID: "itm_1", ParentID: &parent, Position: 2}

	pos := 0
	patch := Patch{Parent: &ParentRef{ID: nil}, Position: &pos}
	patch.Apply(&it)

	if it.ParentID != nil {
		t.Fatalf("expected nil parent, got %q", *it.ParentID)
	}
	if it.Position != 0 {
		t.Fatalf("expected position 0, got %d", it.Position)
	}

	columns := patch.Columns()
	if len(columns) != 2 || columns[0] != "parent_id" || columns[1] != "position" {
		t.Fatalf("unexpected columns %v", columns)
	}
}

func TestCloneDetachesParentPointer(t *testing.T) {
	parent := "itm_parent"
	original := Item{ID: "itm_1", ParentID: &parent}

	copied := original.Clone()
	other := "itm_other"
	*copied.ParentID = other

	if *original.ParentID != "itm_parent" {
		t.Fatalf("clone shares the parent pointer with the original")
	}
}

func TestSameScope(t *testing.T) {
	a, b := "itm_a", "itm_a"
	c := "itm_c"
	if !SameScope(nil, nil) {
		t.Fatal("two roots should share a scope")
	}
	if !SameScope(&a, &b) {
		t.Fatal("equal parent ids should share a scope")
	}
	if SameScope(&a, &c) || SameScope(&a, nil) {
		t.Fatal("different parents must not share a scope")
	}
}
