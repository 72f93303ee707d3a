package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chazu/jscore/pkg/bytecode"
	"github.com/chazu/jscore/pkg/store"
)

// chunkSummary is the YAML view of a chunk printed by inspect.
type chunkSummary struct {
	Name         string         `yaml:"name"`
	Hash         string         `yaml:"hash"`
	Version      uint16         `yaml:"version"`
	Strict       bool           `yaml:"strict"`
	Debug        bool           `yaml:"debug"`
	Size         int            `yaml:"size"`
	Instructions int            `yaml:"instructions"`
	Literals     []string       `yaml:"literals,omitempty"`
	Locators     []string       `yaml:"locators,omitempty"`
	Scopes       []scopeSummary `yaml:"scopes"`
	Code         []string       `yaml:"code,omitempty"`
}

type scopeSummary struct {
	Index    uint32   `yaml:"index"`
	Outer    int32    `yaml:"outer"`
	Depth    uint32   `yaml:"depth"`
	Function bool     `yaml:"function,omitempty"`
	Bindings []string `yaml:"bindings,flow,omitempty"`
}

func summarize(chunk *bytecode.Chunk, withCode bool) (*chunkSummary, error) {
	data, err := bytecode.MarshalChunk(chunk)
	if err != nil {
		return nil, err
	}
	s := &chunkSummary{
		Name:         chunk.Name,
		Hash:         store.Hash(data),
		Version:      chunk.Version,
		Strict:       chunk.IsStrict(),
		Debug:        chunk.Flags&bytecode.ChunkFlagDebug != 0,
		Size:         len(data),
		Instructions: chunk.InstructionCount(),
	}
	for _, lit := range chunk.Literals {
		s.Literals = append(s.Literals, lit.String())
	}
	for _, loc := range chunk.Locators {
		s.Locators = append(s.Locators, loc.String())
	}
	for _, info := range chunk.Scopes {
		sc := scopeSummary{
			Index:    info.Index,
			Outer:    info.Outer,
			Depth:    info.Depth,
			Function: info.FunctionScope,
		}
		for _, b := range info.Bindings {
			kind := "let"
			switch {
			case !b.Lexical:
				kind = "var"
			case !b.Mutable:
				kind = "const"
			}
			sc.Bindings = append(sc.Bindings, kind+" "+b.Name)
		}
		s.Scopes = append(s.Scopes, sc)
	}
	if withCode {
		s.Code = chunk.DisassembleToLines()
	}
	return s, nil
}

func newInspectCommand(opts *options) *cobra.Command {
	var withCode bool
	cmd := &cobra.Command{
		Use:   "inspect CHUNK",
		Short: "Print a YAML summary of a chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunk, err := opts.loadChunk(args[0])
			if err != nil {
				return err
			}
			summary, err := summarize(chunk, withCode)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(summary); err != nil {
				return fmt.Errorf("encoding summary: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&withCode, "code", false, "include the disassembled code section")
	return cmd
}
