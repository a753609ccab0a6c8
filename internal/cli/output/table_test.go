package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func render(t *testing.T, f *TableFormatter, data any) string {
	t.Helper()
	var buf bytes.Buffer
	if err := f.Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	return buf.String()
}

func TestTableFormatter_Table(t *testing.T) {
	table := &Table{Headers: []string{"NAME", "VALUE"}}
	table.AddRow("key1", "value1")

	out := render(t, &TableFormatter{}, table)
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "key1") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out = render(t, &TableFormatter{NoHeaders: true}, *table)
	if strings.Contains(out, "NAME") {
		t.Errorf("headers should be hidden:\n%s", out)
	}
}

type row struct {
	ID      string    `json:"connectionId"`
	SDK     bool      `json:"sdk"`
	AppName string    `json:"appName" table:"wide"`
	Secret  string    `table:"-"`
	At      time.Time `json:"connectedAt"`
}

func TestTableFormatter_SliceOfStructs(t *testing.T) {
	rows := []row{
		{ID: "c1", SDK: true, AppName: "orders", Secret: "x"},
		{ID: "c2"},
	}

	out := render(t, &TableFormatter{}, rows)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got:\n%s", out)
	}
	if !strings.HasPrefix(lines[0], "CONNECTION_ID") {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Contains(out, "APP_NAME") || strings.Contains(out, "SECRET") {
		t.Errorf("wide and hidden columns should not render:\n%s", out)
	}
	if !strings.Contains(lines[2], "-") {
		t.Errorf("zero time should render as '-': %q", lines[2])
	}

	out = render(t, &TableFormatter{Wide: true}, rows)
	if !strings.Contains(out, "APP_NAME") || !strings.Contains(out, "orders") {
		t.Errorf("wide mode should show APP_NAME:\n%s", out)
	}
}

func TestTableFormatter_MapIsSorted(t *testing.T) {
	out := render(t, &TableFormatter{}, map[string]int{"b": 2, "a": 1, "c": 3})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("unexpected output:\n%s", out)
	}
	for i, want := range []string{"a", "b", "c"} {
		if !strings.HasPrefix(lines[i+1], want) {
			t.Errorf("row %d = %q, want prefix %q", i+1, lines[i+1], want)
		}
	}
}

func TestTableFormatter_Struct(t *testing.T) {
	out := render(t, &TableFormatter{}, &sample{ServiceName: "orders", Count: 2})
	if !strings.Contains(out, "FIELD") || !strings.Contains(out, "serviceName") || !strings.Contains(out, "orders") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestTableFormatter_Scalars(t *testing.T) {
	out := render(t, &TableFormatter{}, []string{"x", "y"})
	if !strings.HasPrefix(out, "VALUE") || !strings.Contains(out, "y") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out = render(t, &TableFormatter{}, 42)
	if strings.TrimSpace(out) != "42" {
		t.Errorf("scalar should fall back to JSON, got %q", out)
	}
}

func TestTableFormatter_NilPointer(t *testing.T) {
	var s *sample
	if out := render(t, &TableFormatter{}, s); strings.TrimSpace(out) != "" {
		t.Errorf("nil pointer should render nothing, got %q", out)
	}
}

func TestHeaderName(t *testing.T) {
	tests := map[string]string{
		"connectionId": "CONNECTION_ID",
		"clientIP":     "CLIENT_IP",
		"name":         "NAME",
		"reload_count": "RELOAD_COUNT",
	}
	for in, want := range tests {
		if got := headerName(in); got != want {
			t.Errorf("headerName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	out := render(t, &TableFormatter{}, []struct {
		F float64
		B bool
		L []int
		M map[string]int
		P *int
	}{{F: 1.5, B: true, L: []int{1, 2}, M: map[string]int{}}})
	for _, want := range []string{"1.5", "true", "[2 items]"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
