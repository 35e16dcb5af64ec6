package subscription

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// yamlSource loads the plan price table from a YAML file, letting
// deployments adjust pricing without a rebuild.
//
// Expected document shape:
//
//	plans:
//	  - code: basic
//	    name: Basic
//	    price: "9.90"
//	    currency: EUR
//	    period_months: 1
type yamlSource struct {
	path string
}

// NewYAMLSource returns a PlanSource reading plans from the given file on
// every Load call.
func NewYAMLSource(path string) PlanSource {
	return &yamlSource{path: path}
}

type yamlPlan struct {
	Code         string `yaml:"code"`
	Name         string `yaml:"name"`
	Price        string `yaml:"price"`
	Currency     string `yaml:"currency"`
	PeriodMonths int    `yaml:"period_months"`
}

type yamlPlanDocument struct {
	Plans []yamlPlan `yaml:"plans"`
}

func (s *yamlSource) Load(ctx context.Context) (map[string]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	var doc yamlPlanDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if len(doc.Plans) == 0 {
		return nil, errors.Join(ErrFailedToLoadPlans, fmt.Errorf("no plans defined in %s", s.path))
	}

	plans := make(map[string]Plan, len(doc.Plans))
	for _, p := range doc.Plans {
		if p.Code == "" {
			return nil, errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("plan without code in %s", s.path))
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has invalid price %q: %v", p.Code, p.Price, err))
		}
		plans[p.Code] = Plan{
			Code:         p.Code,
			Name:         p.Name,
			Price:        price,
			Currency:     p.Currency,
			PeriodMonths: p.PeriodMonths,
		}
	}

	return plans, nil
}
