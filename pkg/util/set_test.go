package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stepwise/formwizard/pkg/util"
)

func TestSet(t *testing.T) {
	as := assert.New(t)

	s := util.SetOf("a", "b")
	as.True(s.Contains("a"))
	as.False(s.Contains("c"))
	as.Equal(2, s.Len())

	s.Add("c")
	as.True(s.Contains("c"))

	s.Remove("a")
	as.False(s.Contains("a"))
	as.Equal(2, s.Len())
}
