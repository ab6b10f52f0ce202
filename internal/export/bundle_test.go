package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/xuri/excelize/v2"
)

func sampleTable(n int) Table {
	t := Table{Header: []string{"ch_code", "name", "history_information"}}
	for i := 0; i < n; i++ {
		t.Rows = append(t.Rows, []string{
			string(rune('A' + i)),
			"DELA CRUZ, JUAN",
			`[{"NOTES": "said \"ok\""}]`,
		})
	}
	return t
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	out := make(map[string][]byte)
	for _, f := range zr.File {
		if f.Method != zip.Deflate {
			t.Fatalf("%s: expected deflate, got method %d", f.Name, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		out[f.Name] = b
	}
	return out
}

func TestBuildArchive_SingleChunk(t *testing.T) {
	a, err := BuildArchive(sampleTable(3), "RCBC-2024-06-03", 5000)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if a.Name != "RCBC-2024-06-03.zip" {
		t.Fatalf("unexpected name %s", a.Name)
	}

	want := []string{"RCBC-2024-06-03.csv", "RCBC-2024-06-03.xlsx"}
	if !reflect.DeepEqual(a.Parts, want) {
		t.Fatalf("expected parts %v; got %v", want, a.Parts)
	}

	files := readZip(t, a.Data)
	records, err := csv.NewReader(bytes.NewReader(files["RCBC-2024-06-03.csv"])).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header plus 3 rows; got %d", len(records))
	}
	if records[1][2] != `[{"NOTES": "said \"ok\""}]` {
		t.Fatalf("json cell did not survive csv quoting: %s", records[1][2])
	}

	x, err := excelize.OpenReader(bytes.NewReader(files["RCBC-2024-06-03.xlsx"]))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer x.Close()
	rows, err := x.GetRows(sheetName)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 || rows[0][0] != "ch_code" || rows[3][0] != "C" {
		t.Fatalf("unexpected sheet contents %v", rows)
	}
}

func TestBuildArchive_PartsWhenChunked(t *testing.T) {
	a, err := BuildArchive(sampleTable(5), "BPI-2024-06-03", 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	want := []string{
		"BPI-2024-06-03_part1.csv", "BPI-2024-06-03_part1.xlsx",
		"BPI-2024-06-03_part2.csv", "BPI-2024-06-03_part2.xlsx",
		"BPI-2024-06-03_part3.csv", "BPI-2024-06-03_part3.xlsx",
	}
	if !reflect.DeepEqual(a.Parts, want) {
		t.Fatalf("expected parts %v; got %v", want, a.Parts)
	}
	if a.Rows != 5 {
		t.Fatalf("expected 5 rows; got %d", a.Rows)
	}

	files := readZip(t, a.Data)
	last, err := csv.NewReader(bytes.NewReader(files["BPI-2024-06-03_part3.csv"])).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(last) != 2 || last[1][0] != "E" {
		t.Fatalf("unexpected last part %v", last)
	}
}

func TestBuildArchive_Empty(t *testing.T) {
	_, err := BuildArchive(sampleTable(0), "X", 10)
	if !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable; got %v", err)
	}
}

func TestRemoteDir(t *testing.T) {
	at := time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		base, folder, client, want string
	}{
		{"/admin/ACTIVE/backup/LEADS", "CMS ENV1", "RCBC Cards", "/admin/ACTIVE/backup/LEADS/2024/CMS ENV1/Mar/rcbc cards"},
		{"/admin/ACTIVE/backup/LEADS", "", "BPI", "/admin/ACTIVE/backup/LEADS/2024/Mar/bpi"},
		{"/leads/", "/CMS - AUTOSTAT/", "UB", "/leads/2024/CMS - AUTOSTAT/Mar/ub"},
	}
	for _, tc := range cases {
		if got := RemoteDir(tc.base, at, tc.folder, tc.client); got != tc.want {
			t.Errorf("expected %s; got %s", tc.want, got)
		}
	}
}

func TestUniqueName(t *testing.T) {
	cases := []struct {
		existing []string
		want     string
	}{
		{nil, "RCBC-2024-06-03.zip"},
		{[]string{"other.zip"}, "RCBC-2024-06-03.zip"},
		{[]string{"RCBC-2024-06-03.zip"}, "RCBC-2024-06-03(1).zip"},
		{[]string{"/x/RCBC-2024-06-03.zip", "/x/RCBC-2024-06-03(1).zip", "RCBC-2024-06-03(3).zip"}, "RCBC-2024-06-03(2).zip"},
	}
	for _, tc := range cases {
		if got := UniqueName("RCBC-2024-06-03", tc.existing); got != tc.want {
			t.Errorf("existing %v: expected %s; got %s", tc.existing, tc.want, got)
		}
	}
}

func TestFileBase(t *testing.T) {
	at := time.Date(2024, time.June, 3, 15, 0, 0, 0, time.UTC)
	if got := FileBase("RCBC", at); got != "RCBC-2024-06-03" {
		t.Fatalf("unexpected base %s", got)
	}
}
