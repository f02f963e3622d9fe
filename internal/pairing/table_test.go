package pairing

import "testing"

func TestTable_CreateGetRemove(t *testing.T) {
	tbl := NewTable()

	stream, ok := tbl.Create("t1", "a")
	if !ok || stream == nil {
		t.Fatal("Create failed")
	}
	if _, ok := tbl.Create("t1", "a"); ok {
		t.Error("duplicate Create should fail")
	}

	st, ok := tbl.Get("a")
	if !ok || st.ConnID != "a" || st.Paired() {
		t.Errorf("Get = (%+v, %v), want waiting state for a", st, ok)
	}
	if task, _ := tbl.Task("a"); task != "t1" {
		t.Errorf("Task = %q, want t1", task)
	}

	if _, ok := tbl.Remove("a"); !ok {
		t.Error("Remove should report the entry")
	}
	if _, ok := tbl.Remove("a"); ok {
		t.Error("second Remove should report nothing")
	}
	if tbl.Has("a") {
		t.Error("entry still present after Remove")
	}
	if _, ok := stream.Next(); ok {
		t.Error("stream should be closed after Remove")
	}
}

func TestTable_PublishOrder(t *testing.T) {
	tbl := NewTable()
	stream, _ := tbl.Create("t1", "a")

	tbl.Publish(State{ConnID: "a", Peer: "b"})
	tbl.Publish(State{ConnID: "a", ClosedByPeer: true})
	tbl.Publish(State{ConnID: "a", Peer: "c"})

	want := []State{
		{ConnID: "a", Peer: "b"},
		{ConnID: "a", ClosedByPeer: true},
		{ConnID: "a", Peer: "c"},
	}
	for i, w := range want {
		got, ok := stream.TryNext()
		if !ok {
			t.Fatalf("missing state %d", i)
		}
		if got != w {
			t.Errorf("state %d = %+v, want %+v", i, got, w)
		}
	}

	if cur, _ := tbl.Get("a"); cur.Peer != "c" {
		t.Errorf("current peer = %q, want c", cur.Peer)
	}
}

func TestTable_PublishUnknown(t *testing.T) {
	tbl := NewTable()
	if tbl.Publish(State{ConnID: "ghost"}) {
		t.Error("Publish to unknown id should return false")
	}
}
