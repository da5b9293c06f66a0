package neo4j

import (
	"testing"

	"github.com/kroma-labs/sentinel-neo4j/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSettings(t *testing.T) {
	type args struct {
		src      config.Source
		section  string
		name     string
		pipeline []SettingsFunc
	}

	tests := []struct {
		name         string
		args         args
		wantSettings Settings
	}{
		{
			name: "given only a named connection string, then defaults apply",
			args: args{
				src:     config.Map{"ConnectionStrings:neo4j": "host=db1"},
				section: DefaultConfigSection,
				name:    "neo4j",
			},
			wantSettings: Settings{
				ConnectionString: "host=db1",
				HealthChecks:     true,
				Tracing:          true,
				Metrics:          false,
			},
		},
		{
			name: "given section keys, then they are bound",
			args: args{
				src: config.Map{
					"Neo4j:Driver:ConnectionString": "host=section",
					"Neo4j:Driver:HealthChecks":     "false",
					"Neo4j:Driver:Tracing":          "False",
					"Neo4j:Driver:Metrics":          "true",
				},
				section: DefaultConfigSection,
				name:    "neo4j",
			},
			wantSettings: Settings{
				ConnectionString: "host=section",
				HealthChecks:     false,
				Tracing:          false,
				Metrics:          true,
			},
		},
		{
			name: "given section and named connection string, then named connection string wins",
			args: args{
				src: config.Map{
					"Neo4j:Driver:ConnectionString": "host=section",
					"ConnectionStrings:neo4j":       "host=named",
				},
				section: DefaultConfigSection,
				name:    "neo4j",
			},
			wantSettings: Settings{
				ConnectionString: "host=named",
				HealthChecks:     true,
				Tracing:          true,
			},
		},
		{
			name: "given pipeline, then it runs last and in order",
			args: args{
				src:     config.Map{"ConnectionStrings:neo4j": "host=named"},
				section: DefaultConfigSection,
				name:    "neo4j",
				pipeline: []SettingsFunc{
					func(s Settings) Settings {
						s.ConnectionString = "host=first"
						s.Metrics = true
						return s
					},
					nil,
					func(s Settings) Settings {
						s.ConnectionString += ";username=u;password=p"
						return s
					},
				},
			},
			wantSettings: Settings{
				ConnectionString: "host=first;username=u;password=p",
				HealthChecks:     true,
				Tracing:          true,
				Metrics:          true,
			},
		},
		{
			name: "given keyed section, then only that section is read",
			args: args{
				src: config.Map{
					"Neo4j:Driver:Tracing":                  "false",
					"Neo4j:Driver:primary:HealthChecks":     "false",
					"Neo4j:Driver:primary:ConnectionString": "host=primary",
				},
				section: "Neo4j:Driver:primary",
				name:    "primary",
			},
			wantSettings: Settings{
				ConnectionString: "host=primary",
				HealthChecks:     false,
				Tracing:          true,
			},
		},
		{
			name: "given nil source and pipeline connection string, then resolves",
			args: args{
				section: DefaultConfigSection,
				name:    "neo4j",
				pipeline: []SettingsFunc{func(s Settings) Settings {
					s.ConnectionString = "host=db1"
					return s
				}},
			},
			wantSettings: Settings{
				ConnectionString: "host=db1",
				HealthChecks:     true,
				Tracing:          true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSettings(tt.args.src, tt.args.section, tt.args.name, tt.args.pipeline...)

			require.NoError(t, err)
			assert.Equal(t, tt.wantSettings, got)
		})
	}
}

func TestResolveSettings_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      config.Source
		pipeline []SettingsFunc
		wantMsg  string
	}{
		{
			name:    "given no connection string, then returns configuration error",
			src:     config.Map{},
			wantMsg: "ConnectionStrings:neo4j",
		},
		{
			name:    "given whitespace connection string, then returns configuration error",
			src:     config.Map{"ConnectionStrings:neo4j": "   "},
			wantMsg: "ConnectionString is empty",
		},
		{
			name: "given pipeline clearing the connection string, then returns configuration error",
			src:  config.Map{"ConnectionStrings:neo4j": "host=db1"},
			pipeline: []SettingsFunc{func(s Settings) Settings {
				s.ConnectionString = ""
				return s
			}},
			wantMsg: "ConnectionString is empty",
		},
		{
			name: "given non boolean toggle, then returns configuration error",
			src: config.Map{
				"ConnectionStrings:neo4j": "host=db1",
				"Neo4j:Driver:Tracing":    "maybe",
			},
			wantMsg: "Neo4j:Driver:Tracing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveSettings(tt.src, DefaultConfigSection, "neo4j", tt.pipeline...)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
