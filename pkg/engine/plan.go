package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-flexforms/pkg/definition"
)

// Plan is a compiled and scheduled form. Compiling once and evaluating many
// times is the intended use; a Plan is safe for concurrent Evaluate calls.
type Plan struct {
	form        definition.Form
	programs    Programs
	compileErrs []FieldError
	graph       *Graph
	order       []string
	cfg         config
}

// Compile normalises and validates form, compiles its modifiers and
// schedules them. Modifiers that fail to compile do not stop compilation;
// their errors are reported by every Evaluate. A dependency cycle is fatal.
func Compile(form definition.Form, opts ...Option) (*Plan, error) {
	cfg := newConfig(opts)
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return nil, err
	}

	programs, compileErrs := CompilePrograms(form.Fields, cfg.compiler)
	graph := BuildGraph(form.Fields, programs)
	order, err := Schedule(graph)
	if err != nil {
		cfg.logger.Warn("dependency cycle", "form", form.Name, "error", err)
		if cfg.observer != nil {
			cfg.observer.ObservePass(form.Name, OutcomeCycle, 0)
		}
		return nil, err
	}

	cfg.logger.Debug("compiled form",
		"form", form.Name,
		"fields", len(form.Fields),
		"modifiers", form.ModifierCount(),
		"order", order,
		"errors", len(compileErrs),
	)
	return &Plan{
		form:        form,
		programs:    programs,
		compileErrs: compileErrs,
		graph:       graph,
		order:       order,
		cfg:         cfg,
	}, nil
}

// Form returns the normalised definition the plan was compiled from.
func (p *Plan) Form() definition.Form { return p.form }

// Graph returns the dependency graph.
func (p *Plan) Graph() *Graph { return p.graph }

// Order returns the evaluation order.
func (p *Plan) Order() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// CompileErrors returns the modifiers that failed to compile.
func (p *Plan) CompileErrors() []FieldError {
	out := make([]FieldError, len(p.compileErrs))
	copy(out, p.compileErrs)
	return out
}

// Result is the outcome of one evaluation pass.
type Result struct {
	Form    string
	Order   []string
	Context Context
	Overlay Overlay
	// Errors holds every locally recovered failure: compilation, input
	// coercion and evaluation, in that order.
	Errors []FieldError
}

// Err aggregates Errors into a *multierror.Error, or returns nil.
func (r Result) Err() error { return joinFieldErrors(r.Errors) }

// FieldErrors returns the errors attached to field.
func (r Result) FieldErrors(field string) []FieldError {
	var out []FieldError
	for _, err := range r.Errors {
		if err.Field == field {
			out = append(out, err)
		}
	}
	return out
}

// Evaluate runs one pass against the submitted values. The returned error is
// only set when an internal invariant breaks; expression failures are
// reported in Result.Errors.
func (p *Plan) Evaluate(values map[string]any) (Result, error) {
	start := time.Now()
	ctx, inputErrs := NewContext(p.form.Fields, values, p.cfg.coercer)
	overlay, evalErrs, err := Apply(p.form.Fields, ctx, p.order, p.programs)
	elapsed := time.Since(start)
	if err != nil {
		p.cfg.logger.Error("evaluation aborted", "form", p.form.Name, "error", err)
		p.observe(OutcomeFatal, elapsed, nil)
		return Result{}, err
	}

	errs := make([]FieldError, 0, len(p.compileErrs)+len(inputErrs)+len(evalErrs))
	errs = append(errs, p.compileErrs...)
	errs = append(errs, inputErrs...)
	errs = append(errs, evalErrs...)

	outcome := OutcomeOK
	if len(errs) > 0 {
		outcome = OutcomeErrors
	}
	p.observe(outcome, elapsed, errs)
	p.cfg.logger.Debug("evaluated form",
		"form", p.form.Name,
		"overrides", len(overlay),
		"errors", len(errs),
		"duration", elapsed,
	)
	if len(errs) == 0 {
		errs = nil
	}
	return Result{
		Form:    p.form.Name,
		Order:   p.Order(),
		Context: ctx,
		Overlay: overlay,
		Errors:  errs,
	}, nil
}

func (p *Plan) observe(outcome string, elapsed time.Duration, errs []FieldError) {
	if p.cfg.observer == nil {
		return
	}
	p.cfg.observer.ObservePass(p.form.Name, outcome, elapsed)
	for _, err := range errs {
		p.cfg.observer.ObserveFieldError(p.form.Name, err.Kind())
	}
}

// Evaluate compiles form and runs a single pass.
func Evaluate(form definition.Form, values map[string]any, opts ...Option) (Result, error) {
	plan, err := Compile(form, opts...)
	if err != nil {
		return Result{}, err
	}
	return plan.Evaluate(values)
}

// Job pairs a form with the values of one submission.
type Job struct {
	Form   definition.Form
	Values map[string]any
}

// EvaluateAll evaluates jobs in parallel and returns results in job order.
// The first fatal error cancels the remaining jobs.
func EvaluateAll(ctx context.Context, jobs []Job, opts ...Option) ([]Result, error) {
	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := Evaluate(job.Form, job.Values, opts...)
			if err != nil {
				return fmt.Errorf("engine: form %q: %w", formLabel(job.Form, i), err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func formLabel(form definition.Form, index int) string {
	if form.Name != "" {
		return form.Name
	}
	if form.Label != "" {
		return form.Label
	}
	return fmt.Sprintf("#%d", index)
}

// IsCycle reports whether err is a dependency cycle.
func IsCycle(err error) bool {
	return errors.Is(err, ErrCyclicDependency)
}
