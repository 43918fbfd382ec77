package service

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fake struct {
	name  string
	err   error
	trace *[]string
}

func (f fake) Run() { *f.trace = append(*f.trace, "run "+f.name) }
func (f fake) Shutdown(context.Context) error {
	*f.trace = append(*f.trace, "stop "+f.name)
	return f.err
}
func (f fake) String() string { return f.name }

func TestGroup(t *testing.T) {
	var trace []string
	g := Group{}
	g.Add(fake{name: "a", trace: &trace}, nil, "not runnable", fake{name: "b", err: errors.New("boom"), trace: &trace})
	g.Add(fake{name: "c", err: context.Canceled, trace: &trace})

	g.Start()
	err := g.Shutdown(context.Background())

	want := "run a,run b,run c,stop c,stop b,stop a"
	if got := strings.Join(trace, ","); got != want {
		t.Errorf("trace %v, want %v", got, want)
	}
	if err == nil || !strings.Contains(err.Error(), "[b]: boom") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestGroupNoErrors(t *testing.T) {
	var trace []string
	g := Group{}
	g.Add(fake{name: "a", trace: &trace})
	if err := g.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
