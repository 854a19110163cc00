package optim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/natgrad/internal/autodiff"
)

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD struct {
	params     []*autodiff.Parameter
	lr         float64
	momentum   float64
	velocities map[*autodiff.Parameter]*mat.Dense
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
func NewSGD(params []*autodiff.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*autodiff.Parameter]*mat.Dense),
	}
}

// Step performs a single optimization step.
//
// Parameters with no gradient are skipped.
func (s *SGD) Step(grads autodiff.Gradients) {
	for _, param := range s.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}

		update := grad
		if s.momentum != 0 {
			velocity, exists := s.velocities[param]
			if !exists {
				velocity = mat.NewDense(grad.RawMatrix().Rows, grad.RawMatrix().Cols, nil)
				s.velocities[param] = velocity
			}
			// velocity = momentum * velocity + grad
			velocity.Scale(s.momentum, velocity)
			velocity.Add(velocity, grad)
			update = velocity
		}

		// param -= lr * update
		var scaled mat.Dense
		scaled.Scale(s.lr, update)
		param.Value().Sub(param.Value(), &scaled)
	}
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}

// Parameters returns the parameters updated by this optimizer.
func (s *SGD) Parameters() []*autodiff.Parameter {
	return s.params
}

// StateDict returns the optimizer state for serialization.
//
// State keys: "velocity.{param_index}" -> velocity matrix. Without momentum
// the map is empty.
func (s *SGD) StateDict() map[string]*mat.Dense {
	stateDict := make(map[string]*mat.Dense)
	if s.momentum == 0 {
		return stateDict
	}
	for i, param := range s.params {
		velocity, exists := s.velocities[param]
		if !exists {
			continue
		}
		stateDict[fmt.Sprintf("velocity.%d", i)] = mat.DenseCopyOf(velocity)
	}
	return stateDict
}

// LoadStateDict restores velocity buffers saved by StateDict.
//
// Returns an error if a velocity shape doesn't match its parameter.
func (s *SGD) LoadStateDict(stateDict map[string]*mat.Dense) error {
	if s.momentum == 0 {
		return nil
	}

	velocities := make(map[*autodiff.Parameter]*mat.Dense)
	for i, param := range s.params {
		velocity, exists := stateDict[fmt.Sprintf("velocity.%d", i)]
		if !exists {
			continue
		}
		r, c := param.Dims()
		if vr, vc := velocity.Dims(); vr != r || vc != c {
			return fmt.Errorf("velocity shape mismatch for parameter %d: expected %d×%d, got %d×%d", i, r, c, vr, vc)
		}
		velocities[param] = mat.DenseCopyOf(velocity)
	}
	s.velocities = velocities
	return nil
}
