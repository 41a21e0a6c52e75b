package demography

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/evosearch/demova/pkg/errors"
	"github.com/evosearch/demova/pkg/utils"
)

// EpochDynamics specifies how one population's size changes during an epoch:
// either a fixed law or a searchable dynamics variable.
type EpochDynamics struct {
	tag string
	v   *DynamicsVariable
}

// FixedDynamics pins an epoch's size change to a literal law.
func FixedDynamics(tag string) EpochDynamics {
	return EpochDynamics{tag: tag}
}

// SearchDynamics lets the optimizer choose the size-change law through a
// variable.
func SearchDynamics(v *DynamicsVariable) EpochDynamics {
	return EpochDynamics{v: v}
}

// Variable returns the underlying dynamics variable, if the law is
// searchable.
func (d EpochDynamics) Variable() (*DynamicsVariable, bool) {
	return d.v, d.v != nil
}

// Tag returns the literal law, if the law is pinned.
func (d EpochDynamics) Tag() (string, bool) {
	if d.v != nil {
		return "", false
	}
	return d.tag, true
}

// Epoch is a period of constant demography structure: every current
// population keeps one size variable, an optional pairwise migration matrix,
// and a size-change law.
type Epoch struct {
	Duration  Variable
	Sizes     []Variable
	Migration [][]Variable // nil for no migration; diagonal entries are nil
	Dynamics  []EpochDynamics
}

// Split divides the population at Index into two descendants with the given
// size variables.
type Split struct {
	Index int
	Sizes []Variable
}

type event struct {
	epoch *Epoch
	split *Split
}

// Model is an ordered sequence of epochs and splits over a growing set of
// populations, together with an overlay of temporarily fixed variables. The
// base event sequence is append-only; fixing never mutates it.
type Model struct {
	events []event
	npop   int

	// first-introduction order of distinct variables
	order []Variable
	seen  map[string]Variable

	fixed map[string]Value
}

// NewModel creates an empty model with a single ancestral population.
func NewModel() *Model {
	return &Model{
		npop:  1,
		seen:  make(map[string]Variable),
		fixed: make(map[string]Value),
	}
}

// NumberOfPopulations reports how many populations exist after all recorded
// events.
func (m *Model) NumberOfPopulations() int {
	return m.npop
}

// AddEpoch appends an epoch. sizes must carry one variable per current
// population; migration is nil or a square matrix with nil diagonal;
// dynamics is nil (all sudden) or one entry per population.
func (m *Model) AddEpoch(duration Variable, sizes []Variable, migration [][]Variable, dynamics []EpochDynamics) error {
	if duration == nil {
		return errors.New(errors.InvalidInput, "epoch requires a duration variable")
	}
	if len(sizes) != m.npop {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "epoch size count does not match population count"),
			errors.Fields{"sizes": len(sizes), "populations": m.npop})
	}
	for i, s := range sizes {
		if s == nil {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "epoch size variable is nil"),
				errors.Fields{"population": i})
		}
	}
	if migration != nil {
		if len(migration) != m.npop {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "migration matrix does not match population count"),
				errors.Fields{"rows": len(migration), "populations": m.npop})
		}
		for i, row := range migration {
			if len(row) != m.npop {
				return errors.WithFields(
					errors.New(errors.InvalidInput, "migration matrix is not square"),
					errors.Fields{"row": i, "columns": len(row), "populations": m.npop})
			}
			if row[i] != nil {
				return errors.WithFields(
					errors.New(errors.InvalidInput, "migration matrix diagonal must be nil"),
					errors.Fields{"row": i})
			}
		}
	}
	if dynamics == nil {
		dynamics = make([]EpochDynamics, m.npop)
		for i := range dynamics {
			dynamics[i] = FixedDynamics(Sudden)
		}
	}
	if len(dynamics) != m.npop {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "dynamics count does not match population count"),
			errors.Fields{"dynamics": len(dynamics), "populations": m.npop})
	}
	for i, d := range dynamics {
		if tag, ok := d.Tag(); ok && !IsDynamicsTag(tag) {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "unknown dynamics tag"),
				errors.Fields{"population": i, "tag": tag})
		}
	}

	ep := &Epoch{
		Duration:  duration,
		Sizes:     append([]Variable(nil), sizes...),
		Dynamics:  append([]EpochDynamics(nil), dynamics...),
		Migration: migration,
	}
	m.events = append(m.events, event{epoch: ep})

	m.introduce(duration)
	for _, s := range ep.Sizes {
		m.introduce(s)
	}
	if migration != nil {
		for i, row := range migration {
			for j, mv := range row {
				if i != j && mv != nil {
					m.introduce(mv)
				}
			}
		}
	}
	for _, d := range ep.Dynamics {
		if dv, ok := d.Variable(); ok {
			m.introduce(dv)
		}
	}
	return nil
}

// AddSplit appends a split of the population at index into two descendants.
func (m *Model) AddSplit(index int, sizes []Variable) error {
	if index < 0 || index >= m.npop {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "split index out of range"),
			errors.Fields{"index": index, "populations": m.npop})
	}
	if len(sizes) != 2 {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "split requires exactly two descendant sizes"),
			errors.Fields{"sizes": len(sizes)})
	}
	for i, s := range sizes {
		if s == nil {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "split size variable is nil"),
				errors.Fields{"descendant": i})
		}
	}

	sp := &Split{Index: index, Sizes: append([]Variable(nil), sizes...)}
	m.events = append(m.events, event{split: sp})
	m.npop++

	for _, s := range sp.Sizes {
		m.introduce(s)
	}
	return nil
}

func (m *Model) introduce(v Variable) {
	if _, ok := m.seen[v.Name()]; ok {
		return
	}
	m.seen[v.Name()] = v
	m.order = append(m.order, v)
}

// Variables returns the distinct variables of the model in
// first-introduction order.
func (m *Model) Variables() []Variable {
	out := make([]Variable, len(m.order))
	copy(out, m.order)
	return out
}

// Epochs returns the epochs of the model in event order.
func (m *Model) Epochs() []*Epoch {
	var out []*Epoch
	for _, ev := range m.events {
		if ev.epoch != nil {
			out = append(out, ev.epoch)
		}
	}
	return out
}

// Splits returns the splits of the model in event order.
func (m *Model) Splits() []*Split {
	var out []*Split
	for _, ev := range m.events {
		if ev.split != nil {
			out = append(out, ev.split)
		}
	}
	return out
}

// FixVariable pins a member variable to a value; the variable stops
// contributing parameters until unfixed. Re-fixing overwrites the stored
// value.
func (m *Model) FixVariable(v Variable, value Value) error {
	member, ok := m.seen[v.Name()]
	if !ok || !VariablesEqual(member, v) {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "variable is not part of the model"),
			errors.Fields{"variable": v.Name()})
	}
	if err := m.checkValue(member, value); err != nil {
		return err
	}
	m.fixed[v.Name()] = value
	return nil
}

// UnfixVariable releases a previously fixed member variable.
func (m *Model) UnfixVariable(v Variable) error {
	member, ok := m.seen[v.Name()]
	if !ok || !VariablesEqual(member, v) {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "variable is not part of the model"),
			errors.Fields{"variable": v.Name()})
	}
	if _, ok := m.fixed[v.Name()]; !ok {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "variable is not fixed"),
			errors.Fields{"variable": v.Name()})
	}
	delete(m.fixed, v.Name())
	return nil
}

// FixDynamics pins every dynamics variable to its value under the given
// assignment.
func (m *Model) FixDynamics(values map[string]Value) error {
	// Validate the full set before mutating the overlay
	resolved := make(map[string]Value)
	for _, v := range m.order {
		dv, ok := v.(*DynamicsVariable)
		if !ok {
			continue
		}
		value, ok := values[dv.Name()]
		if !ok {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "no value supplied for dynamics variable"),
				errors.Fields{"variable": dv.Name()})
		}
		tag, ok := value.(string)
		if !ok || !dv.Contains(tag) {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "value is outside the dynamics domain"),
				errors.Fields{"variable": dv.Name(), "value": value})
		}
		resolved[dv.Name()] = tag
	}
	for name, tag := range resolved {
		m.fixed[name] = tag
	}
	return nil
}

// UnfixDynamics releases every fixed dynamics variable.
func (m *Model) UnfixDynamics() {
	for _, v := range m.order {
		if _, ok := v.(*DynamicsVariable); ok {
			delete(m.fixed, v.Name())
		}
	}
}

// UnfixAll releases every fixed variable.
func (m *Model) UnfixAll() {
	m.fixed = make(map[string]Value)
}

// IsFixed reports whether the named variable is currently pinned.
func (m *Model) IsFixed(name string) bool {
	_, ok := m.fixed[name]
	return ok
}

// FixedValue returns the pinned value of the named variable, if any.
func (m *Model) FixedValue(name string) (Value, bool) {
	value, ok := m.fixed[name]
	return value, ok
}

func (m *Model) checkValue(v Variable, value Value) error {
	switch member := v.(type) {
	case *ContinuousVariable:
		x, ok := asFloat(value)
		if !ok || !member.Contains(x) {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "value is outside the variable domain"),
				errors.Fields{"variable": v.Name(), "value": value})
		}
	case *DynamicsVariable:
		tag, ok := value.(string)
		if !ok || !member.Contains(tag) {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "value is outside the dynamics domain"),
				errors.Fields{"variable": v.Name(), "value": value})
		}
	case *DiscreteVariable:
		if !member.Contains(value) {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "value is outside the variable domain"),
				errors.Fields{"variable": v.Name(), "value": value})
		}
	}
	return nil
}

// NumberOfParameters counts the free parameters of the model under the
// given assignment. Fixed variables contribute nothing; a free dynamics
// variable contributes nothing when it resolves to a sudden size change and
// one parameter otherwise; every other free variable contributes one.
func (m *Model) NumberOfParameters(values map[string]Value) (int, error) {
	count := 0
	for _, v := range m.order {
		if m.IsFixed(v.Name()) {
			continue
		}
		dv, ok := v.(*DynamicsVariable)
		if !ok {
			count++
			continue
		}
		raw, ok := values[dv.Name()]
		if !ok {
			return 0, errors.WithFields(
				errors.New(errors.InvalidInput, "dynamics variable has no value to resolve"),
				errors.Fields{"variable": dv.Name()})
		}
		tag, ok := raw.(string)
		if !ok {
			return 0, errors.WithFields(
				errors.New(errors.InvalidInput, "dynamics value is not a tag"),
				errors.Fields{"variable": dv.Name(), "value": raw})
		}
		if tag != Sudden {
			count++
		}
	}
	return count, nil
}

// SampleValues draws a full assignment in variable order: pinned variables
// take their overlay value, free variables are resampled.
func (m *Model) SampleValues(rng *rand.Rand) []Value {
	values := make([]Value, len(m.order))
	for i, v := range m.order {
		if pinned, ok := m.fixed[v.Name()]; ok {
			values[i] = pinned
			continue
		}
		values[i] = v.Resample(rng)
	}
	return values
}

// ValuesMap aligns a value slice (in variable order) with variable names.
func (m *Model) ValuesMap(values []Value) (map[string]Value, error) {
	if len(values) != len(m.order) {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "value count does not match variable count"),
			errors.Fields{"values": len(values), "variables": len(m.order)})
	}
	out := make(map[string]Value, len(values))
	for i, v := range m.order {
		out[v.Name()] = values[i]
	}
	return out, nil
}

// Describe renders the event chain with the given assignment substituted,
// using the supplied number of decimal digits for continuous values.
func (m *Model) Describe(values map[string]Value, precision int) string {
	var b strings.Builder
	b.WriteString("[ ")
	for i, ev := range m.events {
		if i > 0 {
			b.WriteString(", ")
		}
		switch {
		case ev.epoch != nil:
			m.describeEpoch(&b, ev.epoch, values, precision)
		case ev.split != nil:
			m.describeSplit(&b, ev.split, values, precision)
		}
	}
	b.WriteString(" ]")
	return b.String()
}

func (m *Model) describeEpoch(b *strings.Builder, ep *Epoch, values map[string]Value, precision int) {
	b.WriteString(m.renderValue(ep.Duration, values, precision))
	b.WriteString(", [")
	for i, s := range ep.Sizes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(m.renderValue(s, values, precision))
	}
	b.WriteString("]")
	if ep.Migration != nil {
		b.WriteString(", [")
		for i, row := range ep.Migration {
			if i > 0 {
				b.WriteString("; ")
			}
			for j, mv := range row {
				if j > 0 {
					b.WriteString(" ")
				}
				if mv == nil {
					b.WriteString("0")
					continue
				}
				b.WriteString(m.renderValue(mv, values, precision))
			}
		}
		b.WriteString("]")
	}
	b.WriteString(", [")
	for i, d := range ep.Dynamics {
		if i > 0 {
			b.WriteString(", ")
		}
		if tag, ok := d.Tag(); ok {
			b.WriteString(tag)
			continue
		}
		dv, _ := d.Variable()
		b.WriteString(m.renderValue(dv, values, precision))
	}
	b.WriteString("]")
}

func (m *Model) describeSplit(b *strings.Builder, sp *Split, values map[string]Value, precision int) {
	fmt.Fprintf(b, "split_%d [", sp.Index)
	for i, s := range sp.Sizes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(m.renderValue(s, values, precision))
	}
	b.WriteString("]")
}

func (m *Model) renderValue(v Variable, values map[string]Value, precision int) string {
	raw, ok := m.fixed[v.Name()]
	if !ok {
		raw, ok = values[v.Name()]
	}
	if !ok {
		return v.Name()
	}
	if x, isNum := asFloat(raw); isNum {
		return utils.FormatFloat(x, precision)
	}
	return fmt.Sprintf("%v", raw)
}
