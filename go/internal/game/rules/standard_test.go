package rules

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Paris", want: "paris"},
		{name: "diacritics", in: "Évier", want: "evier"},
		{name: "whitespace", in: "  new   york ", want: "new york"},
		{name: "cedilla", in: "Façade", want: "facade"},
		{name: "empty", in: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestStandard_IsAnswerValid(t *testing.T) {
	rules := Standard{}

	assert.True(t, rules.IsAnswerValid("P", "Paris"))
	assert.True(t, rules.IsAnswerValid("p", "  paris"))
	assert.True(t, rules.IsAnswerValid("E", "Évier"))
	assert.False(t, rules.IsAnswerValid("P", "Lyon"))
	assert.False(t, rules.IsAnswerValid("P", ""))
	assert.False(t, rules.IsAnswerValid("P", "   "))
	assert.False(t, rules.IsAnswerValid("", "Paris"))
}

func TestStandard_IsAnswerAccepted(t *testing.T) {
	rules := Standard{}
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	assert.True(t, rules.IsAnswerAccepted(nil))
	assert.True(t, rules.IsAnswerAccepted(map[uuid.UUID]bool{a: true}))
	assert.True(t, rules.IsAnswerAccepted(map[uuid.UUID]bool{a: true, b: false}))
	assert.True(t, rules.IsAnswerAccepted(map[uuid.UUID]bool{a: true, b: true, c: false}))
	assert.False(t, rules.IsAnswerAccepted(map[uuid.UUID]bool{a: false}))
	assert.False(t, rules.IsAnswerAccepted(map[uuid.UUID]bool{a: true, b: false, c: false}))
}

func TestStandard_CompareAnswers(t *testing.T) {
	rules := Standard{}

	assert.True(t, rules.CompareAnswers("Paris", "paris"))
	assert.True(t, rules.CompareAnswers(" Pérou ", "perou"))
	assert.False(t, rules.CompareAnswers("Paris", "Pau"))
}
