package workflow

import "fmt"

// TransitionTable maps each trigger permitted from a state to its target state
type TransitionTable map[Trigger]State

// Builder collects transition tables and stamps out independent machines
type Builder struct {
	tables map[State]TransitionTable
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{tables: make(map[State]TransitionTable)}
}

// From registers transitions out of state. Later calls for the same state merge into its table.
func (b *Builder) From(state State, transitions TransitionTable) *Builder {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	table, ok := b.tables[state]
	if !ok {
		table = make(TransitionTable, len(transitions))
		b.tables[state] = table
	}
	for trigger, to := range transitions {
		if !to.IsValid() {
			panic(fmt.Sprintf("invalid target state: %s", to))
		}
		table[trigger] = to
	}
	return b
}

// Build returns a machine positioned at initial with its own copy of the tables
func (b *Builder) Build(initial State) (StateMachine, error) {
	if !initial.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, initial)
	}

	tables := make(map[State]TransitionTable, len(b.tables))
	for state, table := range b.tables {
		copied := make(TransitionTable, len(table))
		for trigger, to := range table {
			copied[trigger] = to
		}
		tables[state] = copied
	}
	return &tableMachine{current: initial, tables: tables}, nil
}

type tableMachine struct {
	current State
	tables  map[State]TransitionTable
}

func (m *tableMachine) State() State {
	return m.current
}

func (m *tableMachine) CanFire(trigger Trigger) bool {
	_, ok := m.tables[m.current][trigger]
	return ok
}

func (m *tableMachine) Fire(trigger Trigger) error {
	to, ok := m.tables[m.current][trigger]
	if !ok {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, trigger, m.current)
	}
	m.current = to
	return nil
}
