// Package analysis runs the morphometry pipeline: outlines are measured into
// profiles, combined into a consensus, segmented, and the segmentation is
// carried back to every outline.
package analysis

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"morphoprofile/internal/models"
	"morphoprofile/internal/monitoring"
	"morphoprofile/pkg/collection"
	"morphoprofile/pkg/config"
	"morphoprofile/pkg/outline"
	"morphoprofile/pkg/profile"
	"morphoprofile/pkg/segment"
	"morphoprofile/pkg/visualization"
)

// ResultFile is the name of the result written to the output directory.
const ResultFile = "result.yaml"

// Params holds the analysis parameters.
type Params struct {
	// DatasetFile is the YAML dataset of outlines to analyse.
	DatasetFile string

	// OutputDir receives the result file and any charts.
	OutputDir string

	// NumCores bounds the goroutines used for per-outline work.
	NumCores int

	// WindowProportion is the angle window as a fraction of each border.
	WindowProportion float64

	// MedianLength fixes the consensus length. Zero uses the median outline
	// length.
	MedianLength int

	// Segment enables automatic segmentation with Segmenter. Otherwise the
	// consensus keeps a single default segment.
	Segment   bool
	Segmenter collection.Segmenter

	// Plots renders one chart per profile type, PlotWidth by PlotHeight
	// centimetres.
	Plots      bool
	PlotWidth  float64
	PlotHeight float64
}

// ParamsFromConfig fills Params from a loaded configuration.
func ParamsFromConfig(cfg *config.Config, datasetFile string) *Params {
	return &Params{
		DatasetFile:      datasetFile,
		OutputDir:        cfg.Output.Directory,
		NumCores:         cfg.Processing.NumCores,
		WindowProportion: cfg.Processing.ProfileWindowProportion,
		MedianLength:     cfg.Processing.MedianLength,
		Segment:          cfg.Segmentation.Enabled,
		Segmenter: collection.Segmenter{
			Smoothing:      cfg.Segmentation.SmoothingWindow,
			Window:         cfg.Segmentation.ExtremumWindow,
			MinimumSpacing: cfg.Segmentation.MinimumSpacing,
		},
		Plots:      cfg.Output.Plots,
		PlotWidth:  cfg.Output.PlotWidth,
		PlotHeight: cfg.Output.PlotHeight,
	}
}

// Analyzer runs the pipeline over one dataset.
//
// The process consists of several steps:
// 1. Loading the dataset and measuring each outline
// 2. Building the consensus profiles and aligning reference points to it
// 3. Segmenting the consensus and assigning segments to each outline
// 4. Writing the result and charts
type Analyzer struct {
	params  *Params
	dataset *models.Dataset
	nuclei  []*models.Nucleus
	manager *collection.Manager
	result  *models.Result
}

// NewAnalyzer creates an analyzer with the provided parameters.
func NewAnalyzer(params *Params) *Analyzer {
	if params.NumCores <= 0 {
		params.NumCores = runtime.NumCPU()
	}
	if params.WindowProportion == 0 {
		params.WindowProportion = outline.DefaultWindowProportion
	}
	return &Analyzer{params: params}
}

// Process runs the complete pipeline and writes the output.
func (a *Analyzer) Process(ctx context.Context) error {
	log := monitoring.Logger()

	// Step 1: Load and measure outlines
	log.Info("loading dataset", "file", a.params.DatasetFile)
	if err := a.load(ctx); err != nil {
		return err
	}

	// Step 2: Build the consensus
	log.Info("building consensus", "outlines", len(a.nuclei))
	if err := a.buildConsensus(); err != nil {
		return fmt.Errorf("failed to build consensus: %w", err)
	}

	// Step 3: Segment
	if a.params.Segment {
		if err := a.manager.Segment(a.params.Segmenter); err != nil {
			return fmt.Errorf("failed to segment consensus: %w", err)
		}
	} else if err := a.manager.AssignSegmentsToMembers(); err != nil {
		return err
	}

	// Step 4: Write results
	result, err := BuildResult(a.dataset.Name, a.manager)
	if err != nil {
		return err
	}
	a.result = result
	return a.save()
}

// Restore rebuilds the analyzer state recorded in a saved result, so the
// segmentation can be edited without repeating the analysis.
func (a *Analyzer) Restore(ctx context.Context, result *models.Result) error {
	if err := a.load(ctx); err != nil {
		return err
	}
	for _, n := range a.nuclei {
		mr, err := result.Member(n.ID())
		if err != nil {
			return err
		}
		if mr.Length != n.Length() {
			return profile.Invalidf("outline %s has %d points, result recorded %d", n.Name(), n.Length(), mr.Length)
		}
		n.SetLocked(mr.Locked)
		for lm, idx := range mr.Landmarks {
			if err := n.SetLandmark(lm, idx); err != nil {
				return err
			}
		}
		rp, err := n.Landmark(collection.ReferencePoint)
		if err != nil {
			return err
		}
		segs, err := segment.FromRecords(mr.Segments)
		if err != nil {
			return err
		}
		if err := n.SetSegments(collection.ReferencePoint, offsetAll(segs, -rp)); err != nil {
			return fmt.Errorf("outline %s: %w", n.Name(), err)
		}
	}
	if err := a.newManager(); err != nil {
		return err
	}

	pc := a.manager.Collection()
	if err := pc.CalculateProfiles(a.manager.Members(), result.Length); err != nil {
		return err
	}
	segs, err := segment.FromRecords(result.Segments)
	if err != nil {
		return err
	}
	if len(segs) > 0 {
		if err := pc.SetSegments(segs); err != nil {
			return err
		}
	}
	for lm, idx := range result.Landmarks {
		if lm == collection.ReferencePoint {
			continue
		}
		if err := pc.SetLandmark(lm, idx); err != nil {
			return err
		}
	}
	a.result = result
	monitoring.Logger().Debug("restored analysis", "outlines", len(a.nuclei), "segments", pc.SegmentCount())
	return nil
}

func offsetAll(segs []segment.Segment, delta int) []segment.Segment {
	out := make([]segment.Segment, len(segs))
	for i, s := range segs {
		out[i] = s.Offset(delta)
	}
	return out
}

// Apply runs edits on the consensus in order, then refreshes and saves the
// result. Edits before a failing one stay applied.
func (a *Analyzer) Apply(edits ...Edit) error {
	if a.manager == nil {
		return profile.Invalidf("no analysis to edit")
	}
	for _, e := range edits {
		if err := e.Apply(a.manager); err != nil {
			return fmt.Errorf("%s: %w", e, err)
		}
		monitoring.Logger().Info("applied edit", "edit", e.String())
	}
	result, err := BuildResult(a.result.Dataset, a.manager)
	if err != nil {
		return err
	}
	a.result = result
	return a.save()
}

// load reads the dataset and measures each outline in parallel.
func (a *Analyzer) load(ctx context.Context) error {
	ds, err := models.LoadDataset(a.params.DatasetFile)
	if err != nil {
		return err
	}
	a.dataset = ds

	nuclei := make([]*models.Nucleus, len(ds.Outlines))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.params.NumCores)
	for i, o := range ds.Outlines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := measure(o, a.params.WindowProportion)
			if err != nil {
				return fmt.Errorf("failed to measure outline %s: %w", o.Name, err)
			}
			nuclei[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	a.nuclei = nuclei
	return nil
}

// measure turns one outline into a nucleus with its reference point at the
// sharpest angle.
func measure(o models.Outline, windowProportion float64) (*models.Nucleus, error) {
	shape, err := outline.FromPoints(o.Points, windowProportion)
	if err != nil {
		return nil, err
	}
	profiles, err := shape.Profiles()
	if err != nil {
		return nil, err
	}
	rp, err := shape.ReferenceIndex()
	if err != nil {
		return nil, err
	}
	n, err := models.NewNucleus(o.ID, o.Name, profiles, rp)
	if err != nil {
		return nil, err
	}
	n.SetLocked(o.Locked)
	return n, nil
}

func (a *Analyzer) newManager() error {
	members := make([]collection.Member, len(a.nuclei))
	for i, n := range a.nuclei {
		members[i] = n
	}
	mgr, err := collection.NewManager(members, a.params.NumCores)
	if err != nil {
		return err
	}
	a.manager = mgr
	return nil
}

// buildConsensus calculates the consensus, then moves each unlocked
// outline's reference point to its best fit against the consensus median
// and recalculates.
func (a *Analyzer) buildConsensus() error {
	if err := a.newManager(); err != nil {
		return err
	}
	length := a.params.MedianLength
	if length == 0 {
		length = a.manager.MedianLength()
	}
	pc := a.manager.Collection()
	if err := pc.CalculateProfiles(a.manager.Members(), length); err != nil {
		return err
	}

	median, err := pc.Profile(profile.Angle, collection.ReferencePoint, collection.Median)
	if err != nil {
		return err
	}
	if err := a.manager.UpdateLandmarkToMedianBestFit(collection.ReferencePoint, profile.Angle, median); err != nil {
		return err
	}
	return a.manager.RecalculateProfileAggregates()
}

// save writes the result and, if enabled, the charts.
func (a *Analyzer) save() error {
	path := filepath.Join(a.params.OutputDir, ResultFile)
	if err := models.SaveYAML(path, a.result); err != nil {
		return err
	}
	monitoring.Logger().Info("saved result", "file", path)

	if !a.params.Plots {
		return nil
	}
	pc := a.manager.Collection()
	segs, err := pc.Segments(collection.ReferencePoint)
	if err != nil {
		return err
	}
	for _, cp := range a.result.Profiles {
		chart := visualization.NewProfileChart(
			fmt.Sprintf("%s: %s", a.result.Dataset, cp.Type),
			cp.Median, cp.LowerQuartile, cp.UpperQuartile, segs)
		file := filepath.Join(a.params.OutputDir, fmt.Sprintf("profile_%s.png", cp.Type))
		if err := chart.Save(file, a.params.PlotWidth, a.params.PlotHeight); err != nil {
			return fmt.Errorf("failed to save %s chart: %w", cp.Type, err)
		}
	}
	return nil
}

// Manager returns the collection manager, nil before Process or Restore.
func (a *Analyzer) Manager() *collection.Manager { return a.manager }

// Result returns the latest result, nil before Process or Restore.
func (a *Analyzer) Result() *models.Result { return a.result }

// BuildResult captures the consensus and each member of mgr.
func BuildResult(dataset string, mgr *collection.Manager) (*models.Result, error) {
	pc := mgr.Collection()
	r := &models.Result{
		Dataset:   dataset,
		Length:    pc.Length(),
		Landmarks: make(map[collection.Landmark]int),
	}
	for _, lm := range pc.Landmarks() {
		idx, err := pc.Landmark(lm)
		if err != nil {
			return nil, err
		}
		r.Landmarks[lm] = idx
	}
	segs, err := pc.Segments(collection.ReferencePoint)
	if err != nil {
		return nil, err
	}
	r.Segments = segment.Records(segs)

	for _, t := range profile.Types {
		cp := models.ConsensusProfile{Type: t}
		for q, dst := range map[float64]*profile.Profile{25: &cp.LowerQuartile, collection.Median: &cp.Median, 75: &cp.UpperQuartile} {
			p, err := pc.Profile(t, collection.ReferencePoint, q)
			if err != nil {
				return nil, err
			}
			*dst = p
		}
		r.Profiles = append(r.Profiles, cp)
	}

	median := medianAngle(r)
	for _, mem := range mgr.Members() {
		mr, err := memberResult(mem, median)
		if err != nil {
			return nil, err
		}
		r.Members = append(r.Members, mr)
	}
	return r, nil
}

func medianAngle(r *models.Result) profile.Profile {
	for _, p := range r.Profiles {
		if p.Type == profile.Angle {
			return p.Median
		}
	}
	return profile.Profile{}
}

func memberResult(mem collection.Member, median profile.Profile) (models.MemberResult, error) {
	mr := models.MemberResult{
		ID:        mem.ID(),
		Name:      mem.Name(),
		Length:    mem.Length(),
		Locked:    mem.Locked(),
		Landmarks: mem.Landmarks(),
	}
	sp, err := mem.Profile(profile.Angle, collection.ReferencePoint)
	if err != nil {
		return mr, err
	}
	if sp.IsSegmented() {
		rp := mr.Landmarks[collection.ReferencePoint]
		mr.Segments = segment.Records(offsetAll(sp.Segments(), rp))
	}
	ssd, err := sp.Profile().SquareDifferenceAt(median, median.Len())
	if err != nil {
		return mr, err
	}
	mr.Difference = math.Sqrt(ssd) / float64(median.Len())
	return mr, nil
}
