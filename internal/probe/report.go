package probe

import "time"

// SchemaVersion is bumped whenever Report's document shape changes.
const SchemaVersion = 1

// TrialRecord is one verification made during a search, in probe order.
type TrialRecord struct {
	Version  Version       `json:"version" yaml:"version"`
	Success  bool          `json:"success" yaml:"success"`
	Reason   FailureReason `json:"failureReason" yaml:"failureReason"`
	TimedOut bool          `json:"timedOut,omitempty" yaml:"timedOut,omitempty"`

	ResolvedVersion *string `json:"resolvedVersion,omitempty" yaml:"resolvedVersion,omitempty"`
}

// PackageResult is built up by one search and finalized when it ends.
type PackageResult struct {
	PackageName                    string   `json:"packageName" yaml:"packageName"`
	DeclaresEngineConstraint       bool     `json:"declaresEngineConstraint" yaml:"declaresEngineConstraint"`
	OldestCompatibleVersion        *Version `json:"oldestCompatibleVersion" yaml:"oldestCompatibleVersion"`
	NewestTestedVersion            *Version `json:"newestTestedVersion" yaml:"newestTestedVersion"`
	FirstDeclaredConstraintMessage *string  `json:"firstDeclaredConstraintMessage" yaml:"firstDeclaredConstraintMessage"`
	DependencySpec                 string   `json:"dependencySpec,omitempty" yaml:"dependencySpec,omitempty"`
	// ResolvedVersion is the package release installed on the newest version
	// that passed.
	ResolvedVersion *string `json:"resolvedVersion,omitempty" yaml:"resolvedVersion,omitempty"`

	Trials []TrialRecord `json:"trials" yaml:"trials"`
	// MonotonicityViolations lists versions that passed although a newer
	// version failed. Only linear searches can observe them.
	MonotonicityViolations []Version `json:"monotonicityViolations,omitempty" yaml:"monotonicityViolations,omitempty"`
}

// NewPackageResult starts a result for pkg, or for the control case when pkg is nil.
func NewPackageResult(pkg *Package) *PackageResult {
	if pkg == nil {
		return &PackageResult{PackageName: ControlName, Trials: []TrialRecord{}}
	}
	return &PackageResult{
		PackageName:              pkg.Name,
		DeclaresEngineConstraint: pkg.DeclaresEngineConstraint,
		DependencySpec:           pkg.Spec,
		Trials:                   []TrialRecord{},
	}
}

// RecordTrial appends a trial and freezes the first declared-constraint message.
func (r *PackageResult) RecordTrial(v Version, o TrialOutcome) {
	r.Trials = append(r.Trials, TrialRecord{
		Version:  v,
		Success:  o.Success,
		Reason:   o.Reason,
		TimedOut: o.TimedOut,

		ResolvedVersion: o.ResolvedVersion,
	})
	if o.Reason == ReasonDeclaredConstraintViolation && o.DeclaredConstraintMessage != nil && r.FirstDeclaredConstraintMessage == nil {
		msg := *o.DeclaredConstraintMessage
		r.FirstDeclaredConstraintMessage = &msg
	}
}

// Finalize sets the search answer. newestTestedVersion is the newest candidate
// whenever anything passed, since monotonicity makes it compatible too.
func (r *PackageResult) Finalize(oldest *Version, versions []Version) {
	r.OldestCompatibleVersion = oldest
	r.NewestTestedVersion = nil
	if oldest != nil && len(versions) > 0 {
		newest := versions[len(versions)-1]
		r.NewestTestedVersion = &newest
	}

	rank := make(map[Version]int, len(versions))
	for i, v := range versions {
		rank[v] = i
	}
	r.ResolvedVersion = nil
	best := -1
	for _, t := range r.Trials {
		i, ok := rank[t.Version]
		if !ok || t.ResolvedVersion == nil || i <= best {
			continue
		}
		best = i
		resolved := *t.ResolvedVersion
		r.ResolvedVersion = &resolved
	}
}

// Report is the whole experiment: control first, then catalog order.
type Report struct {
	SchemaVersion int             `json:"schemaVersion" yaml:"schemaVersion"`
	ID            string          `json:"id" yaml:"id"`
	Engine        string          `json:"engine" yaml:"engine"`
	SearchMode    SearchMode      `json:"searchMode" yaml:"searchMode"`
	Versions      []Version       `json:"versions" yaml:"versions"`
	StartedAt     time.Time       `json:"startedAt" yaml:"startedAt"`
	FinishedAt    time.Time       `json:"finishedAt" yaml:"finishedAt"`
	Results       []PackageResult `json:"results" yaml:"results"`
}

// Result returns the result for a package name, if present.
func (r *Report) Result(name string) (*PackageResult, bool) {
	for i := range r.Results {
		if r.Results[i].PackageName == name {
			return &r.Results[i], true
		}
	}
	return nil, false
}

// Summary is the listing view of a stored report.
type Summary struct {
	ID         string    `json:"id" yaml:"id"`
	Engine     string    `json:"engine" yaml:"engine"`
	Packages   int       `json:"packages" yaml:"packages"`
	Compatible int       `json:"compatible" yaml:"compatible"`
	StartedAt  time.Time `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time `json:"finishedAt" yaml:"finishedAt"`
}

// Summarize builds the listing view of r.
func (r *Report) Summarize() Summary {
	s := Summary{
		ID:         r.ID,
		Engine:     r.Engine,
		Packages:   len(r.Results),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	for _, res := range r.Results {
		if res.OldestCompatibleVersion != nil {
			s.Compatible++
		}
	}
	return s
}
