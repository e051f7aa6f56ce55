package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommands(t *testing.T) {
	addPersistentFlags()
	rootCmd.AddCommand(evaluateCmd(), campaignsCmd())

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"evaluate table", []string{"evaluate", "--campaigns", "testdata/campaigns", "--person", "testdata/person.yaml", "--as-of", "20250425"}, false},
		{"evaluate json", []string{"evaluate", "--campaigns", "testdata/campaigns", "--person", "testdata/person.yaml", "--as-of", "20250425", "--json"}, false},
		{"missing person file", []string{"evaluate", "--campaigns", "testdata/campaigns", "--person", "testdata/nobody.yaml"}, true},
		{"bad category", []string{"evaluate", "--campaigns", "testdata/campaigns", "--person", "testdata/person.yaml", "--category", "TRAVEL"}, true},
		{"list campaigns", []string{"campaigns", "--campaigns", "testdata/campaigns"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.SetArgs(tt.args)
			err := rootCmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
