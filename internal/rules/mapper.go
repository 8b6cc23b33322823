package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/trial-eligibility-server/internal/atc"
	"github.com/trial-eligibility-server/internal/domain"
	"github.com/trial-eligibility-server/internal/evaluation"
	"github.com/trial-eligibility-server/internal/medication"
)

var (
	atcCodePattern = regexp.MustCompile(`^[A-Z]([0-9]{2}([A-Z]([A-Z]([0-9]{2})?)?)?)?$`)
	cypPattern     = regexp.MustCompile(`^[0-9]{1,2}[A-Z][0-9]{0,2}$`)
)

// KnownTransporters lists the drug transporters accepted as ONE_TRANSPORTER
// parameters.
var KnownTransporters = []string{"BCRP", "MATE1", "MATE2K", "OAT1", "OAT3", "OATP1B1", "OATP1B3", "OCT2", "PGP"}

// Input holds the parsed, validated parameters of one function.
type Input struct {
	Integer     int
	String      string
	Strings     []string
	Cyp         string
	Transporter string
	Category    string
	Levels      atc.LevelSet
	Protein     string
	Children    []evaluation.Function
}

type constructor func(in Input) evaluation.Function

// Observer is notified of every evaluation made by a function the mapper built.
type Observer func(rule EligibilityRule, e domain.Evaluation)

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithStatusInterpreter replaces the default reference-date interpreter.
func WithStatusInterpreter(interpreter medication.StatusInterpreter) MapperOption {
	return func(m *Mapper) {
		m.selector = medication.NewSelector(interpreter)
	}
}

// WithObserver registers an observer for built functions.
func WithObserver(observer Observer) MapperOption {
	return func(m *Mapper) {
		m.observer = observer
	}
}

// Mapper binds eligibility functions to their evaluators. Parameters are
// validated against the rule's FunctionInput when a function is built, so a
// malformed criterion fails before any patient is evaluated.
type Mapper struct {
	logger        *logrus.Logger
	categories    *atc.Categories
	referenceDate domain.Date
	selector      *medication.Selector
	observer      Observer
	constructors  map[EligibilityRule]constructor
}

// NewMapper creates a mapper evaluating medication status on referenceDate.
func NewMapper(categories *atc.Categories, referenceDate domain.Date, logger *logrus.Logger, opts ...MapperOption) *Mapper {
	m := &Mapper{
		logger:        logger,
		categories:    categories,
		referenceDate: referenceDate,
		selector:      medication.NewSelector(medication.OnEvaluationDate(referenceDate)),
		constructors:  make(map[EligibilityRule]constructor),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.initializeRules()

	return m
}

// ReferenceDate returns the date medication status is interpreted against.
func (m *Mapper) ReferenceDate() domain.Date {
	return m.referenceDate
}

// Categories returns the category resolver used for category parameters.
func (m *Mapper) Categories() *atc.Categories {
	return m.categories
}

// Build validates fn and returns the bound evaluation function.
func (m *Mapper) Build(fn EligibilityFunction) (evaluation.Function, error) {
	def, ok := fn.Rule.Definition()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownRule, fn.Rule)
	}
	create, ok := m.constructors[fn.Rule]
	if !ok {
		return nil, fmt.Errorf("%w: no evaluator registered for %s", domain.ErrUnknownRule, fn.Rule)
	}

	in, err := m.parseInput(fn, def)
	if err != nil {
		m.logger.WithError(err).WithField("rule", fn.Rule).Debug("Rejected eligibility function")
		return nil, err
	}

	built := create(in)
	if m.observer != nil {
		built = observed{rule: fn.Rule, function: built, observer: m.observer}
	}
	return built, nil
}

type observed struct {
	rule     EligibilityRule
	function evaluation.Function
	observer Observer
}

func (o observed) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	e := o.function.Evaluate(record)
	o.observer(o.rule, e)
	return e
}

func (m *Mapper) parseInput(fn EligibilityFunction, def RuleDef) (Input, error) {
	var in Input
	fail := func(reason string, args ...any) (Input, error) {
		return Input{}, domain.NewRuleConfigError(string(fn.Rule), string(def.Input), fmt.Sprintf(reason, args...))
	}

	if def.Input.IsComposite() {
		if len(fn.Parameters) > 0 {
			return fail("composite rules take functions, got %d parameters", len(fn.Parameters))
		}
		if def.Input == InputOneCompositeInput && len(fn.Children) != 1 {
			return fail("expected 1 function, got %d", len(fn.Children))
		}
		if def.Input == InputAtLeastTwoCompositeInputs && len(fn.Children) < 2 {
			return fail("expected at least 2 functions, got %d", len(fn.Children))
		}
		for i, child := range fn.Children {
			built, err := m.Build(child)
			if err != nil {
				return Input{}, fmt.Errorf("%s function %d: %w", fn.Rule, i+1, err)
			}
			in.Children = append(in.Children, built)
		}
		return in, nil
	}

	if len(fn.Children) > 0 {
		return fail("rule does not take functions")
	}

	params := fn.Parameters
	want := 1
	switch def.Input {
	case InputNone:
		want = 0
	case InputManyStrings:
		want = -1
	case InputOneCypOneInteger, InputOneMedicationCategoryOneInteger, InputOneProteinOneInteger:
		want = 2
	}
	if want >= 0 && len(params) != want {
		return fail("expected %d parameters, got %d", want, len(params))
	}

	switch def.Input {
	case InputNone:
		in.Protein = def.Protein
	case InputOneInteger:
		n, err := parseCount(params[0])
		if err != nil {
			return fail("%v", err)
		}
		in.Integer = n
		in.Protein = def.Protein
	case InputOneString:
		if strings.TrimSpace(params[0]) == "" {
			return fail("parameter must not be empty")
		}
		in.String = strings.TrimSpace(params[0])
		in.Protein = in.String
	case InputManyStrings:
		for _, p := range params {
			if p = strings.TrimSpace(p); p != "" {
				in.Strings = append(in.Strings, p)
			}
		}
		if len(in.Strings) == 0 {
			return fail("expected at least 1 non-empty parameter")
		}
	case InputOneCyp, InputOneCypOneInteger:
		cyp := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(params[0])), "CYP")
		if !cypPattern.MatchString(cyp) {
			return fail("%q is not a CYP enzyme", params[0])
		}
		in.Cyp = cyp
		if def.Input == InputOneCypOneInteger {
			n, err := parseCount(params[1])
			if err != nil {
				return fail("%v", err)
			}
			in.Integer = n
		}
	case InputOneTransporter:
		transporter := strings.ToUpper(strings.TrimSpace(params[0]))
		if !isKnownTransporter(transporter) {
			return fail("%q is not a known transporter", params[0])
		}
		in.Transporter = transporter
	case InputOneMedicationCategory, InputOneMedicationCategoryOneInteger:
		category := strings.TrimSpace(params[0])
		if !m.categories.IsCategory(category) && !atcCodePattern.MatchString(strings.ToUpper(category)) {
			return fail("%q is neither a medication category nor an ATC code", params[0])
		}
		in.Category = category
		in.Levels = m.categories.Resolve(category)
		if def.Input == InputOneMedicationCategoryOneInteger {
			n, err := parseCount(params[1])
			if err != nil {
				return fail("%v", err)
			}
			in.Integer = n
		}
	case InputOneProteinOneInteger:
		if strings.TrimSpace(params[0]) == "" {
			return fail("protein must not be empty")
		}
		n, err := parseCount(params[1])
		if err != nil {
			return fail("%v", err)
		}
		in.Protein = strings.TrimSpace(params[0])
		in.Integer = n
	default:
		return fail("unsupported input shape")
	}

	return in, nil
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parameter %q is not an integer", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("parameter %d must not be negative", n)
	}
	return n, nil
}

func isKnownTransporter(name string) bool {
	for _, t := range KnownTransporters {
		if t == name {
			return true
		}
	}
	return false
}

func (m *Mapper) addRule(rule EligibilityRule, create constructor) {
	m.constructors[rule] = create
}

func (m *Mapper) initializeRules() {
	s := m.selector

	m.addRule(AND, func(in Input) evaluation.Function { return evaluation.And(in.Children...) })
	m.addRule(OR, func(in Input) evaluation.Function { return evaluation.Or(in.Children...) })
	m.addRule(NOT, func(in Input) evaluation.Function { return evaluation.Not(in.Children[0]) })
	m.addRule(WARN_IF, func(in Input) evaluation.Function { return evaluation.WarnIf(in.Children[0]) })

	m.addRule(IS_AT_LEAST_X_YEARS_OLD, func(in Input) evaluation.Function {
		return IsAtLeastXYearsOld(in.Integer, m.referenceDate.Year())
	})
	m.addRule(HAS_WHO_STATUS_OF_AT_MOST_X, func(in Input) evaluation.Function { return HasWHOStatusOfAtMostX(in.Integer) })
	m.addRule(IS_MALE, func(Input) evaluation.Function { return HasGender(domain.MALE) })
	m.addRule(IS_FEMALE, func(Input) evaluation.Function { return HasGender(domain.FEMALE) })

	m.addRule(CURRENTLY_GETS_MEDICATION_OF_NAME_X, func(in Input) evaluation.Function {
		return CurrentlyGetsMedicationOfName(s, in.Strings)
	})
	m.addRule(CURRENTLY_GETS_MEDICATION_OF_CATEGORY_X, func(in Input) evaluation.Function {
		return CurrentlyGetsMedicationOfAtcLevel(s, in.Category, in.Levels)
	})
	m.addRule(CURRENTLY_GETS_MEDICATION_OF_EXACT_CATEGORY_X, func(in Input) evaluation.Function {
		return CurrentlyGetsMedicationOfExactCategory(s, in.Category, in.Levels)
	})
	m.addRule(CURRENTLY_GETS_STABLE_MEDICATION_OF_CATEGORY_X, func(in Input) evaluation.Function {
		return CurrentlyGetsStableMedicationOfCategory(s, in.Category, in.Levels)
	})
	m.addRule(HAS_RECEIVED_MEDICATION_OF_CATEGORY_X_WITHIN_Y_WEEKS, func(in Input) evaluation.Function {
		return HasRecentlyReceivedMedicationOfAtcLevel(s, in.Category, in.Levels, m.referenceDate.MinusWeeks(in.Integer))
	})
	m.addRule(HAS_RECEIVED_TRIAL_MEDICATION_WITHIN_X_WEEKS, func(in Input) evaluation.Function {
		return HasRecentlyReceivedTrialMedication(s, m.referenceDate.MinusWeeks(in.Integer))
	})

	m.addRule(CURRENTLY_GETS_ANY_CYP_INDUCING_MEDICATION, func(Input) evaluation.Function {
		return CurrentlyGetsAnyCypMedicationOfTypes(s, domain.INDUCER)
	})
	m.addRule(CURRENTLY_GETS_ANY_CYP_INDUCING_OR_INHIBITING_MEDICATION, func(Input) evaluation.Function {
		return CurrentlyGetsAnyCypMedicationOfTypes(s, domain.INDUCER, domain.INHIBITOR)
	})
	m.addRule(CURRENTLY_GETS_CYP_X_INDUCING_MEDICATION, func(in Input) evaluation.Function {
		return CurrentlyGetsCypInteractingMedication(s, &in.Cyp, domain.INDUCER)
	})
	m.addRule(CURRENTLY_GETS_CYP_X_INHIBITING_MEDICATION, func(in Input) evaluation.Function {
		return CurrentlyGetsCypInteractingMedication(s, &in.Cyp, domain.INHIBITOR)
	})
	m.addRule(CURRENTLY_GETS_CYP_X_INHIBITING_OR_INDUCING_MEDICATION, func(in Input) evaluation.Function {
		return CurrentlyGetsCypInteractingMedication(s, &in.Cyp, domain.INHIBITOR, domain.INDUCER)
	})
	m.addRule(CURRENTLY_GETS_CYP_X_SUBSTRATE_MEDICATION, func(in Input) evaluation.Function {
		return CurrentlyGetsCypInteractingMedication(s, &in.Cyp, domain.SUBSTRATE)
	})
	m.addRule(HAS_RECEIVED_CYP_X_INDUCING_MEDICATION_WITHIN_Y_WEEKS, func(in Input) evaluation.Function {
		return HasRecentlyReceivedCypInteractingMedication(s, in.Cyp, domain.INDUCER, m.referenceDate.MinusWeeks(in.Integer))
	})

	m.addRule(CURRENTLY_GETS_TRANSPORTER_X_SUBSTRATE_MEDICATION, func(in Input) evaluation.Function {
		return CurrentlyGetsTransporterInteractingMedication(s, in.Transporter, domain.SUBSTRATE)
	})
	m.addRule(CURRENTLY_GETS_PGP_SUBSTRATE_MEDICATION, func(Input) evaluation.Function {
		return CurrentlyGetsTransporterInteractingMedication(s, "PGP", domain.SUBSTRATE)
	})
	m.addRule(CURRENTLY_GETS_BCRP_SUBSTRATE_MEDICATION, func(Input) evaluation.Function {
		return CurrentlyGetsTransporterInteractingMedication(s, "BCRP", domain.SUBSTRATE)
	})
	m.addRule(CURRENTLY_GETS_BCRP_INHIBITING_MEDICATION, func(Input) evaluation.Function {
		return CurrentlyGetsTransporterInteractingMedication(s, "BCRP", domain.INHIBITOR)
	})
	m.addRule(CURRENTLY_GETS_PGP_INHIBITING_MEDICATION, func(Input) evaluation.Function {
		return NotImplementedMedicationRule("PGP inhibiting medication")
	})
	m.addRule(CURRENTLY_GETS_BCRP_INDUCING_MEDICATION, func(Input) evaluation.Function {
		return NotImplementedMedicationRule("BCRP inducing medication")
	})
	m.addRule(CURRENTLY_GETS_OATP1B1_OR_OATP1B3_SUBSTRATE_MEDICATION, func(Input) evaluation.Function {
		return NotImplementedMedicationRule("OATP1B1 or OATP1B3 substrate medication")
	})
	m.addRule(CURRENTLY_GETS_QT_PROLONGATING_MEDICATION, func(Input) evaluation.Function {
		return CurrentlyGetsQTProlongatingMedication(s)
	})

	protein := func(in Input) evaluation.Function { return NotEvaluableProteinRule(in.Protein) }
	m.addRule(PROTEIN_X_IS_EXPRESSED_BY_IHC, protein)
	m.addRule(PROTEIN_X_EXPRESSION_BY_IHC_OF_AT_LEAST_Y, protein)
	m.addRule(PD_L1_SCORE_CPS_OF_AT_LEAST_X, protein)
	m.addRule(PD_L1_SCORE_TPS_OF_AT_MOST_X, protein)
	m.addRule(HER2_SCORE_BY_IHC_OF_AT_LEAST_X, protein)
	m.addRule(MMR_PROTEIN_EXPRESSION_DEFICIENT_BY_IHC, protein)

	m.logger.WithField("rules", len(m.constructors)).Debug("Initialized eligibility rule mapper")
}
