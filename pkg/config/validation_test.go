package config

import (
	"strings"
	"testing"
	"time"

	"github.com/marmos91/mediagc/pkg/reference"
)

func TestValidate_DefaultConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "TRACE"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "Level") {
		t.Errorf("Expected error to name the Level field, got: %v", err)
	}
}

func TestValidate_InvalidLeaseType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Leases.Type = "redis"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for unknown lease store type")
	}
}

func TestValidate_DefaultTTLExceedsMax(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Leases.DefaultTTL = time.Hour
	cfg.Leases.MaxTTL = time.Minute

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected error when default_ttl exceeds max_ttl")
	}
	if !strings.Contains(err.Error(), "default_ttl") {
		t.Errorf("Expected default_ttl error, got: %v", err)
	}
}

func TestValidate_BatchSizeBounds(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.GC.BatchSize = 5000

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for batch size above 1000")
	}
}

func TestValidate_References(t *testing.T) {
	tests := []struct {
		name    string
		sources []reference.Source
		wantErr string
	}{
		{
			name:    "empty",
			sources: []reference.Source{},
			wantErr: "References",
		},
		{
			name: "injected table name",
			sources: []reference.Source{
				{OwnerKind: "x", Table: "t; DROP TABLE assets", OwnerColumn: "id", ReferenceColumn: "ref", Encoding: reference.EncodingInteger},
			},
			wantErr: "sqlident",
		},
		{
			name: "unknown encoding",
			sources: []reference.Source{
				{OwnerKind: "x", Table: "t", OwnerColumn: "id", ReferenceColumn: "ref", Encoding: "json"},
			},
			wantErr: "oneof",
		},
		{
			name: "duplicate owner kind",
			sources: []reference.Source{
				{OwnerKind: "x", Table: "a", OwnerColumn: "id", ReferenceColumn: "ref", Encoding: reference.EncodingInteger},
				{OwnerKind: "x", Table: "b", OwnerColumn: "id", ReferenceColumn: "ref", Encoding: reference.EncodingString},
			},
			wantErr: "duplicate owner kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.References = tt.sources

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
