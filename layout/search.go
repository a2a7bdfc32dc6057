package layout

import (
	"log/slog"
)

// 参数搜索：在单个标量参数（缩放、宽度或高度）上做指数外扩 + 二分，
// 寻找能完整容纳内容的最小参数值。每次探测都需要完整排版一次，代价较高，
// 因此尽量减少探测次数。

const (
	// DefaultDelta is the bisection tolerance used when none is given.
	DefaultDelta = 0.001
	// DefaultMaxDoublings caps each outward doubling phase.
	DefaultMaxDoublings = 64
)

// DerivationKind selects how a candidate rectangle is derived from the base
// rectangle and the searched parameter.
type DerivationKind int

const (
	CustomFit DerivationKind = iota
	ScaleFit
	WidthFit
	HeightFit
)

func (k DerivationKind) String() string {
	switch k {
	case ScaleFit:
		return "scale"
	case WidthFit:
		return "width"
	case HeightFit:
		return "height"
	default:
		return "custom"
	}
}

// Derivation maps (base, parameter) to the rectangle that is tried.
// Func is only consulted for CustomFit.
type Derivation struct {
	Kind DerivationKind
	Func func(base Rect, p float64) Rect
}

// Custom wraps fn as a CustomFit derivation.
func Custom(fn func(base Rect, p float64) Rect) Derivation {
	return Derivation{Kind: CustomFit, Func: fn}
}

// Apply derives the candidate rectangle. Scale keeps the top-left corner and
// scales width and height by p; width and height replace the respective
// extent with p.
func (d Derivation) Apply(base Rect, p float64) Rect {
	switch d.Kind {
	case ScaleFit:
		return Rect{X0: base.X0, Y0: base.Y0, X1: base.X0 + p*base.Width(), Y1: base.Y0 + p*base.Height()}
	case WidthFit:
		return Rect{X0: base.X0, Y0: base.Y0, X1: base.X0 + p, Y1: base.Y1}
	case HeightFit:
		return Rect{X0: base.X0, Y0: base.Y0, X1: base.X1, Y1: base.Y0 + p}
	default:
		if d.Func == nil {
			return Rect{}
		}
		return d.Func(base, p)
	}
}

// SearchOptions bounds and instruments a parameter search.
type SearchOptions struct {
	// MaxCalls caps the number of Place calls (0 = unlimited).
	MaxCalls int
	// MaxDoublings caps each outward doubling phase (0 = DefaultMaxDoublings).
	MaxDoublings int
	Logger       *slog.Logger
}

// SearchState is the mutable bisection state of one Fit call.
// HasMin/HasMax record whether PMin/PMax hold a tried value.
type SearchState struct {
	PMin, PMax     float64
	HasMin, HasMax bool
	PMinResult     *FitResult
	PMaxResult     *FitResult
	LastTried     float64
	NumCalls       int
	placement      *Placement
	derive         Derivation
	base           Rect
	opts           SearchOptions
	log            *slog.Logger
	hasLast        bool
	doublings      int
}

// NewSearchState prepares a search over pl. Most callers use Fit.
func NewSearchState(pl *Placement, d Derivation, base Rect, opts SearchOptions) *SearchState {
	if opts.MaxDoublings <= 0 {
		opts.MaxDoublings = DefaultMaxDoublings
	}
	return &SearchState{
		placement: pl,
		derive:    d,
		base:      base,
		opts:      opts,
		log:       loggerOrDiscard(opts.Logger),
	}
}

// Fit finds the smallest parameter p (to within delta) for which all
// content placed into d.Apply(base, p) fits. pMin and pMax of 0 mean
// "not supplied". On success the placement holds the layout of the
// returned result. If no fitting parameter is bracketed within the budget
// the zero-parameter result is returned together with a
// *SearchExhaustedError.
func Fit(pl *Placement, d Derivation, base Rect, pMin, pMax, delta float64, opts SearchOptions) (FitResult, error) {
	return NewSearchState(pl, d, base, opts).Run(pMin, pMax, delta)
}

// FitScale searches the uniform scale of rect.
func FitScale(pl *Placement, rect Rect, scaleMin, scaleMax, delta float64, opts SearchOptions) (FitResult, error) {
	return Fit(pl, Derivation{Kind: ScaleFit}, rect, scaleMin, scaleMax, delta, opts)
}

// FitWidth searches the width of rect, keeping its height.
func FitWidth(pl *Placement, rect Rect, widthMin, widthMax, delta float64, opts SearchOptions) (FitResult, error) {
	return Fit(pl, Derivation{Kind: WidthFit}, rect, widthMin, widthMax, delta, opts)
}

// FitHeight searches the height of rect, keeping its width.
func FitHeight(pl *Placement, rect Rect, heightMin, heightMax, delta float64, opts SearchOptions) (FitResult, error) {
	return Fit(pl, Derivation{Kind: HeightFit}, rect, heightMin, heightMax, delta, opts)
}

// Run executes the search. It must be called at most once per state.
func (s *SearchState) Run(pMin, pMax, delta float64) (FitResult, error) {
	if delta <= 0 {
		delta = DefaultDelta
	}

	// 1. 下界：未提供时按 ±1、±2、±4… 向外倍增（方向远离已知上界），直到找到放不下的点。
	if pMin == 0 {
		dir := -1.0
		if pMax < 0 {
			dir = 1
		}
		p := dir
		for {
			fits, err := s.doublingStep(p)
			if err != nil {
				return FitResult{NumCalls: s.NumCalls}, err
			}
			if !fits {
				break
			}
			p = opposite(p, dir)
		}
	} else {
		fits, err := s.Update(pMin)
		if err != nil {
			return FitResult{NumCalls: s.NumCalls}, err
		}
		if fits {
			return s.Ret()
		}
	}

	// 2. 上界：先确认调用方给出的 pMax，不满足时继续向外倍增。
	if !s.HasMax && pMax != 0 {
		if _, err := s.Update(pMax); err != nil {
			return FitResult{NumCalls: s.NumCalls}, err
		}
	}
	if !s.HasMax {
		p := opposite(s.PMin, +1)
		for {
			fits, err := s.doublingStep(p)
			if err != nil {
				return FitResult{NumCalls: s.NumCalls}, err
			}
			if fits {
				break
			}
			p = opposite(p, +1)
		}
	}

	// 3. 二分收缩 [pmin, pmax]。预算用完时停在当前最紧的可行上界。
	for s.HasMin && s.PMax-s.PMin >= delta {
		if s.overBudget() {
			s.log.Debug("fit budget reached during bisection", "pmin", s.PMin, "pmax", s.PMax, "numCalls", s.NumCalls)
			break
		}
		mid := (s.PMin + s.PMax) / 2
		if mid <= s.PMin || mid >= s.PMax {
			break
		}
		if _, err := s.Update(mid); err != nil {
			return FitResult{NumCalls: s.NumCalls}, err
		}
	}
	return s.Ret()
}

// Update tries parameter p and moves whichever bound the result falls on.
func (s *SearchState) Update(p float64) (bool, error) {
	rect := s.derive.Apply(s.base, p)
	var res FitResult
	if rect.IsDegenerate() {
		res = FitResult{Parameter: p, Rect: rect, More: true, NumCalls: s.NumCalls}
	} else {
		s.placement.Reset()
		more, filled, err := s.placement.Place(rect)
		s.NumCalls++
		if err != nil {
			return false, err
		}
		res = FitResult{
			Parameter: p,
			Rect:      rect,
			Filled:    filled,
			More:      more,
			BigEnough: !more,
			NumCalls:  s.NumCalls,
		}
	}
	s.LastTried = p
	s.hasLast = true
	if res.BigEnough {
		s.PMax, s.HasMax, s.PMaxResult = p, true, &res
	} else {
		s.PMin, s.HasMin, s.PMinResult = p, true, &res
	}
	s.log.Debug("fit attempt", "kind", s.derive.Kind.String(), "parameter", p, "bigEnough", res.BigEnough, "numCalls", s.NumCalls)
	return res.BigEnough, nil
}

// Ret returns the result of the tightest fitting bound, re-probing it when
// another parameter was tried last so the placement matches the result.
// With the call budget spent the bound is returned without the extra placement.
func (s *SearchState) Ret() (FitResult, error) {
	if !s.HasMax {
		return FitResult{NumCalls: s.NumCalls}, nil
	}
	if (!s.hasLast || s.LastTried != s.PMax) && !s.overBudget() {
		if _, err := s.Update(s.PMax); err != nil {
			return FitResult{NumCalls: s.NumCalls}, err
		}
	}
	return *s.PMaxResult, nil
}

func (s *SearchState) doublingStep(p float64) (bool, error) {
	if s.doublings >= s.opts.MaxDoublings || s.overBudget() {
		return false, s.exhausted()
	}
	s.doublings++
	return s.Update(p)
}

func (s *SearchState) overBudget() bool {
	return s.opts.MaxCalls > 0 && s.NumCalls >= s.opts.MaxCalls
}

func (s *SearchState) exhausted() error {
	return &SearchExhaustedError{NumCalls: s.NumCalls, Doublings: s.doublings, LastParam: s.LastTried}
}

// opposite returns the next outward parameter from p in the given direction:
// ±1 from zero, doubling when p already points that way, otherwise -p.
func opposite(p float64, direction float64) float64 {
	if p == 0 {
		return direction
	}
	if direction*p > 0 {
		return 2 * p
	}
	return -p
}
