package order

import (
	"errors"
	"testing"
	"time"
)

func TestStoreCreate(t *testing.T) {
	st := NewStore()
	o := st.Create("EURUSD", 10)

	if o.ID == "" {
		t.Fatal("id should be assigned")
	}
	if o.Status != StatusPending {
		t.Errorf("status = %s, want PENDING", o.Status)
	}
	if o.CreatedAt.IsZero() {
		t.Error("createdAt should be set")
	}
	if o.ExecutedAt != nil {
		t.Error("executedAt should be unset on creation")
	}

	got, err := st.Get(o.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Symbol != "EURUSD" || got.Quantity != 10 {
		t.Errorf("stored order = %+v", got)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	st := NewStore()
	if _, err := st.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestStoreListOrder List 保留插入顺序。
func TestStoreListOrder(t *testing.T) {
	st := NewStore()
	a := st.Create("AAAA", 1)
	b := st.Create("BBBB", 2)
	c := st.Create("CCCC", 3)

	got := st.List()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{a.ID, b.ID, c.ID} {
		if got[i].ID != want {
			t.Errorf("list[%d].ID = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestCompareAndSetStatus(t *testing.T) {
	ts := time.Now().UTC()

	tests := []struct {
		name     string
		expected Status
		next     Status
		wantErr  error
		wantSt   Status
	}{
		{"execute pending", StatusPending, StatusExecuted, nil, StatusExecuted},
		{"cancel pending", StatusPending, StatusCancelled, nil, StatusCancelled},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := NewStore()
			o := st.Create("EURUSD", 5)

			got, err := st.CompareAndSetStatus(o.ID, tc.expected, tc.next, ts)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got.Status != tc.wantSt {
				t.Errorf("status = %s, want %s", got.Status, tc.wantSt)
			}
		})
	}
}

// TestCompareAndSetConflict 终态订单的第二次转换必须返回 ErrConflict 且不改状态。
func TestCompareAndSetConflict(t *testing.T) {
	st := NewStore()
	o := st.Create("EURUSD", 5)
	ts := time.Now().UTC()

	if _, err := st.CompareAndSetStatus(o.ID, StatusPending, StatusCancelled, ts); err != nil {
		t.Fatalf("first transition failed: %v", err)
	}

	got, err := st.CompareAndSetStatus(o.ID, StatusPending, StatusExecuted, ts)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %s, want CANCELLED (unchanged)", got.Status)
	}
	if got.ExecutedAt != nil {
		t.Error("executedAt must stay unset after a lost race")
	}
}

func TestCompareAndSetNotFound(t *testing.T) {
	st := NewStore()
	_, err := st.CompareAndSetStatus("missing", StatusPending, StatusExecuted, time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestExecutedAtOnlyOnExecute ExecutedAt 只在 PENDING→EXECUTED 时落盘。
func TestExecutedAtOnlyOnExecute(t *testing.T) {
	st := NewStore()

	cancelled := st.Create("EURUSD", 1)
	if _, err := st.CompareAndSetStatus(cancelled.ID, StatusPending, StatusCancelled, time.Now()); err != nil {
		t.Fatal(err)
	}
	got, _ := st.Get(cancelled.ID)
	if got.ExecutedAt != nil {
		t.Error("cancelled order must not carry executedAt")
	}

	executed := st.Create("EURUSD", 1)
	ts := time.Now().UTC()
	if _, err := st.CompareAndSetStatus(executed.ID, StatusPending, StatusExecuted, ts); err != nil {
		t.Fatal(err)
	}
	got, _ = st.Get(executed.ID)
	if got.ExecutedAt == nil {
		t.Fatal("executed order must carry executedAt")
	}
	if !got.ExecutedAt.Equal(ts) {
		t.Errorf("executedAt = %v, want %v", got.ExecutedAt, ts)
	}
	if got.ExecutedAt.Before(got.CreatedAt) {
		t.Error("executedAt must be >= createdAt")
	}
}

// TestSnapshotIsolation 返回的快照与库内记录隔离，调用方改不动库内状态。
func TestSnapshotIsolation(t *testing.T) {
	st := NewStore()
	o := st.Create("EURUSD", 1)

	o.Status = StatusExecuted // 改的是副本
	got, _ := st.Get(o.ID)
	if got.Status != StatusPending {
		t.Errorf("store mutated through snapshot: %s", got.Status)
	}
}
