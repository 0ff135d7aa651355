package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TAX_RATE", "")
	t.Setenv("SEQUENCE_BACKEND", "")
	t.Setenv("KAFKA_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TaxRate.String() != "0.0825" {
		t.Fatalf("tax rate %s", cfg.TaxRate)
	}
	if cfg.SequenceBackend != "postgres" {
		t.Fatalf("sequence backend %q", cfg.SequenceBackend)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Fatalf("brokers %v", cfg.KafkaBrokers)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TAX_RATE", "0.1")
	t.Setenv("SEQUENCE_BACKEND", "redis")
	t.Setenv("KAFKA_ADDR", "k1:9092, k2:9092,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TaxRate.String() != "0.1" {
		t.Fatalf("tax rate %s", cfg.TaxRate)
	}
	if cfg.SequenceBackend != "redis" {
		t.Fatalf("sequence backend %q", cfg.SequenceBackend)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers %v", cfg.KafkaBrokers)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("TAX_RATE", "abc")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for bad tax rate")
	}

	t.Setenv("TAX_RATE", "-0.1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative tax rate")
	}

	t.Setenv("TAX_RATE", "")
	t.Setenv("SEQUENCE_BACKEND", "etcd")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
