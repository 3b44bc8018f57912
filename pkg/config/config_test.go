package config

import "testing"

func TestParseAlgorithmAcceptsCoevAndPredictorsAliases(t *testing.T) {
	coev, err := ParseAlgorithm("coev")
	if err != nil {
		t.Fatalf("ParseAlgorithm(coev): %v", err)
	}
	predictors, err := ParseAlgorithm("predictors")
	if err != nil {
		t.Fatalf("ParseAlgorithm(predictors): %v", err)
	}
	if coev != predictors {
		t.Fatalf("coev (%v) and predictors (%v) should resolve to the same algorithm", coev, predictors)
	}
	if coev != AlgorithmCoevolution {
		t.Fatalf("coev should resolve to AlgorithmCoevolution, got %v", coev)
	}
}

func TestParseAlgorithmRejectsUnknown(t *testing.T) {
	if _, err := ParseAlgorithm("bogus"); err == nil {
		t.Fatal("expected an error for an unknown algorithm name")
	}
}

func TestValidateRequiresImages(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to fail without --original/--noisy")
	}

	cfg.InputImage = "a.png"
	cfg.NoisyImage = "b.png"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate with required fields set: %v", err)
	}
}

func TestValidateRejectsMutuallyExclusiveTargets(t *testing.T) {
	cfg := Default()
	cfg.InputImage, cfg.NoisyImage = "a.png", "b.png"
	cfg.TargetFitness = 100
	cfg.TargetPSNR = 30

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to reject both target-fitness and target-psnr set")
	}
}
