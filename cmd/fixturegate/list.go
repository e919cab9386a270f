package main

import (
	"github.com/flanksource/clicky"
	"github.com/flanksource/fixturegate/fixtures"
)

type ListOptions struct {
	Categories []string `json:"-" args:"true"`
}

func (o ListOptions) GetName() string { return "list" }

func init() {
	clicky.AddCommand(rootCmd, ListOptions{}, func(opts ListOptions) (any, error) {
		g, err := loadGate()
		if err != nil {
			return nil, err
		}
		cats, err := g.List(opts.Categories...)
		if err != nil {
			return nil, err
		}
		suites := make([]*fixtures.SuiteNode, 0, len(cats))
		for _, c := range cats {
			suites = append(suites, c.Suite)
		}
		return suites, nil
	})
}
