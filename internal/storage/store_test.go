package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/fibrilsim/internal/config"
	"github.com/san-kum/fibrilsim/internal/dynamo"
	"github.com/san-kum/fibrilsim/internal/forcefield"
)

func testRun() (*config.Params, dynamo.Positions, *forcefield.Result) {
	p := config.DefaultParams()
	p.LFibril = 3
	p.Seed = 42
	pos := dynamo.Positions{{1.0, 2.0}, {2.122462048309373, 2.0}, {3.1, 2.9}}
	res := &forcefield.Result{
		Forces: dynamo.Positions{{0.5, -0.25}, {0, 1}, {-0.5, -0.75}},
		Energy: 1.5,
		Terms:  forcefield.Terms{Bond: 1, Angle: 0.5},
	}
	return p, pos, res
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	p, pos, res := testRun()
	runID, err := st.Save(p, pos, res, map[string]float64{"pressure": 0.25})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.NBead != 3 || meta.LFibril != 3 || meta.NDim != 2 {
		t.Errorf("unexpected shape in metadata: %+v", meta)
	}
	if meta.Energy != 1.5 || meta.Terms.Angle != 0.5 {
		t.Errorf("expected energy 1.5 with angle term 0.5, got %f, %+v", meta.Energy, meta.Terms)
	}
	if meta.Metrics["pressure"] != 0.25 {
		t.Errorf("expected pressure 0.25, got %f", meta.Metrics["pressure"])
	}

	got, err := st.LoadPositions(runID)
	if err != nil {
		t.Fatalf("load positions failed: %v", err)
	}
	if len(got) != len(pos) {
		t.Fatalf("expected %d positions, got %d", len(pos), len(got))
	}
	for i := range pos {
		for a := range pos[i] {
			if got[i][a] != pos[i][a] {
				t.Errorf("position %d axis %d: expected %v, got %v", i, a, pos[i][a], got[i][a])
			}
		}
	}

	params, err := st.LoadParams(runID)
	if err != nil {
		t.Fatalf("load params failed: %v", err)
	}
	if params.LFibril != 3 || params.BondR0 != p.BondR0 {
		t.Errorf("params did not round trip: %+v", params)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	if _, err := st.Latest(); !errors.Is(err, ErrNoRuns) {
		t.Errorf("expected ErrNoRuns, got %v", err)
	}

	p, pos, res := testRun()
	first, err := st.Save(p, pos, res, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.Save(p, pos, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("expected distinct run ids")
	}

	if err := os.MkdirAll(filepath.Join(st.baseDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	latest, err := st.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != second {
		t.Errorf("expected latest run %s, got %s", second, latest.ID)
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestArraySelection(t *testing.T) {
	st := New(t.TempDir())
	p, pos, _ := testRun()
	runID, err := st.Save(p, pos, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	frames := [][]float64{{0, 0.1}, {1, 1.1}, {2, 2.1}, {3, 3.1}}
	if err := st.SaveArray(runID, "frames", frames); err != nil {
		t.Fatal(err)
	}

	all, err := st.LoadArray(runID, "frames")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 rows, got %d", len(all))
	}

	sel, err := st.LoadArray(runID, "frames", 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(sel) != 2 || sel[0][0] != 3 || sel[1][1] != 1.1 {
		t.Errorf("unexpected selection %v", sel)
	}

	if _, err := st.LoadArray(runID, "frames", 4); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected out of range error, got %v", err)
	}
	if err := st.SaveArray(runID, "ragged", [][]float64{{1, 2}, {3}}); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ragged rows to fail, got %v", err)
	}
	if _, err := st.LoadArray(runID, "absent"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected missing array error, got %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	p, pos, res := testRun()
	runID, err := st.Save(p, pos, res, map[string]float64{"max_force": 1})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("export is not valid json: %v", err)
	}
	if data.Metadata.ID != runID {
		t.Errorf("expected id %s, got %s", runID, data.Metadata.ID)
	}
	if len(data.Positions) != 3 || len(data.Forces) != 3 {
		t.Errorf("expected 3 positions and forces, got %d and %d", len(data.Positions), len(data.Forces))
	}
	if data.Forces[0][1] != -0.25 {
		t.Errorf("expected force -0.25, got %f", data.Forces[0][1])
	}

	path := filepath.Join(t.TempDir(), "run.json")
	if err := st.ExportFile(path, runID); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("expected exported file, got %v", err)
	}

	noForces, err := st.Save(p, pos, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	exp, err := st.Export(noForces)
	if err != nil {
		t.Fatalf("export without forces failed: %v", err)
	}
	if exp.Forces != nil {
		t.Errorf("expected no forces, got %v", exp.Forces)
	}
}
