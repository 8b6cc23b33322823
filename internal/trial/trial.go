package trial

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/trial-eligibility-server/internal/domain"
	"github.com/trial-eligibility-server/internal/evaluation"
	"github.com/trial-eligibility-server/internal/rules"
)

// Criterion is a parsed and bound criterion.
type Criterion struct {
	Expression rules.EligibilityFunction
	Function   evaluation.Function
}

// Cohort is a compiled cohort.
type Cohort struct {
	ID       string
	Title    string
	Criteria []Criterion
}

// Trial is a compiled trial ready for matching.
type Trial struct {
	ID       string
	Title    string
	Acronym  string
	Open     bool
	Criteria []Criterion
	Cohorts  []Cohort
}

// Compile parses and binds every criterion of the definition. Any malformed
// criterion fails the whole trial.
func Compile(def Definition, mapper *rules.Mapper) (*Trial, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	criteria, err := compileCriteria(def.Criteria, mapper)
	if err != nil {
		return nil, fmt.Errorf("trial %s: %w", def.ID, err)
	}

	t := &Trial{
		ID:       def.ID,
		Title:    def.Title,
		Acronym:  def.Acronym,
		Open:     def.IsOpen(),
		Criteria: criteria,
	}
	for _, cohortDef := range def.Cohorts {
		cohortCriteria, err := compileCriteria(cohortDef.Criteria, mapper)
		if err != nil {
			return nil, fmt.Errorf("trial %s cohort %s: %w", def.ID, cohortDef.ID, err)
		}
		t.Cohorts = append(t.Cohorts, Cohort{ID: cohortDef.ID, Title: cohortDef.Title, Criteria: cohortCriteria})
	}
	return t, nil
}

func compileCriteria(expressions []string, mapper *rules.Mapper) ([]Criterion, error) {
	criteria := make([]Criterion, 0, len(expressions))
	for _, expression := range expressions {
		parsed, err := ParseExpression(expression)
		if err != nil {
			return nil, err
		}
		fn, err := mapper.Build(parsed)
		if err != nil {
			return nil, fmt.Errorf("criterion %s: %w", parsed, err)
		}
		criteria = append(criteria, Criterion{Expression: parsed, Function: fn})
	}
	return criteria, nil
}

// Registry holds the compiled trials. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	trials map[string]*Trial
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{trials: make(map[string]*Trial)}
}

// Add registers a trial, replacing any trial with the same id.
func (r *Registry) Add(t *Trial) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trials[t.ID] = t
}

// Get returns the trial with the given id.
func (r *Registry) Get(id string) (*Trial, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trials[id]
	if !ok {
		return nil, fmt.Errorf("trial %s: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

// List returns all trials ordered by id.
func (r *Registry) List() []*Trial {
	r.mu.RLock()
	defer r.mu.RUnlock()
	trials := make([]*Trial, 0, len(r.trials))
	for _, t := range r.trials {
		trials = append(trials, t)
	}
	sort.Slice(trials, func(i, j int) bool { return trials[i].ID < trials[j].ID })
	return trials
}

// Select returns the trials with the given ids, or every open trial when ids
// is empty.
func (r *Registry) Select(ids []string) ([]*Trial, error) {
	if len(ids) == 0 {
		var open []*Trial
		for _, t := range r.List() {
			if t.Open {
				open = append(open, t)
			}
		}
		return open, nil
	}
	trials := make([]*Trial, 0, len(ids))
	for _, id := range ids {
		t, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		trials = append(trials, t)
	}
	return trials, nil
}

// LoadRegistry compiles the definitions into a new registry.
func LoadRegistry(defs []Definition, mapper *rules.Mapper) (*Registry, error) {
	registry := NewRegistry()
	for _, def := range defs {
		if _, err := registry.Get(def.ID); err == nil {
			return nil, fmt.Errorf("%w: duplicate trial id %s", domain.ErrInvalidTrial, def.ID)
		}
		t, err := Compile(def, mapper)
		if err != nil {
			return nil, err
		}
		registry.Add(t)
	}
	return registry, nil
}

// Signature renders every criterion of the trial in a stable form. Two
// trials with the same id and signature evaluate identically.
func (t *Trial) Signature() string {
	var b strings.Builder
	b.WriteString(t.ID)
	for _, c := range t.Criteria {
		b.WriteByte('\n')
		b.WriteString(c.Expression.String())
	}
	for _, cohort := range t.Cohorts {
		b.WriteString("\n#")
		b.WriteString(cohort.ID)
		for _, c := range cohort.Criteria {
			b.WriteByte('\n')
			b.WriteString(c.Expression.String())
		}
	}
	return b.String()
}
