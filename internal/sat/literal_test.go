package sat

import "testing"

func TestLiteral_VarNegateIsPositive(t *testing.T) {
	l := Literal(-5)
	if got := l.Var(); got != 5 {
		t.Errorf("Var() = %d, want 5", got)
	}
	if got := l.Negate(); got != 5 {
		t.Errorf("Negate() = %d, want 5", got)
	}
	if l.IsPositive() {
		t.Errorf("IsPositive() = true for negative literal")
	}
	if !Literal(5).IsPositive() {
		t.Errorf("IsPositive() = false for positive literal")
	}
	if got := l.String(); got != "-5" {
		t.Errorf("String() = %q, want \"-5\"", got)
	}
}

func TestClause_Unit(t *testing.T) {
	c := &Clause{Literals: []Literal{7}}
	if !c.Unit() {
		t.Errorf("Unit() = false for single-literal clause")
	}
	if got := c.UnitLiteral(); got != 7 {
		t.Errorf("UnitLiteral() = %d, want 7", got)
	}

	c2 := &Clause{Literals: []Literal{1, 2}}
	if c2.Unit() {
		t.Errorf("Unit() = true for two-literal clause")
	}
}
