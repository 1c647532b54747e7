package service

import (
	"context"

	"github.com/shopspring/decimal"
)

var demoBeneficiaries = []struct {
	name     string
	required int64
	story    string
}{
	{"Alice Chan", 2000, "Final year nursing student raising tuition for her clinical placement."},
	{"Ben Wong", 1500, "First in his family at university, needs a laptop and course materials."},
	{"Cindy Lee", 1000, "Engineering student covering exam fees and transport for the semester."},
}

// SeedDemo creates the demo beneficiaries when none exist. It returns how
// many were created.
func (s *Service) SeedDemo(ctx context.Context) (int, error) {
	n, err := s.beneficiaries.Count(ctx)
	if err != nil {
		return 0, translate(err, "failed to count beneficiaries")
	}
	if n > 0 {
		return 0, nil
	}
	for i, d := range demoBeneficiaries {
		if _, err := s.CreateBeneficiary(ctx, d.name, decimal.NewFromInt(d.required), d.story); err != nil {
			return i, err
		}
	}
	return len(demoBeneficiaries), nil
}
