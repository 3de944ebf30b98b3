package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"cvrpsolver/internal/model"
)

const maxCustomers = 5000

func (s *Server) validateSolveRequest(req *model.SolveRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return describe(err)
	}
	if n := len(req.Instance.Customers); n > maxCustomers+1 {
		return fmt.Errorf("instance has %d nodes, at most %d customers are accepted", n, maxCustomers)
	}
	if req.Instance.Customers[0].Demand != 0 {
		return fmt.Errorf("customers[0] is the depot and must have demand 0")
	}
	if req.CallbackSecret != "" && req.CallbackURL == "" {
		return fmt.Errorf("callbackSecret requires callbackUrl")
	}
	return s.checkBudget(req.Options)
}

// checkBudget rejects options asking for more search than one request may start.
func (s *Server) checkBudget(o model.SolverOptions) error {
	var errs []error
	if o.Iterations > s.Service.MaxIterations {
		errs = append(errs, fmt.Errorf("options.iterations must be at most %d", s.Service.MaxIterations))
	}
	if o.TSPIterations > s.Service.MaxTSPIterations {
		errs = append(errs, fmt.Errorf("options.tspIterations must be at most %d", s.Service.MaxTSPIterations))
	}
	if o.Restarts > s.Service.MaxRestarts {
		errs = append(errs, fmt.Errorf("options.restarts must be at most %d", s.Service.MaxRestarts))
	}
	return errors.Join(errs...)
}

// describe flattens validator errors into one readable line.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "SolveRequest.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
