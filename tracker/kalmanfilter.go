package tracker

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Measurement represents an observed centroid as a 1x2 matrix
type Measurement []float64

// StateMean represents the filter state (x, y, vx, vy) as a 1x4 matrix
type StateMean []float64

// StateCov represents a 4x4 state covariance matrix
type StateCov struct {
	*mat.Dense
}

// KalmanFilter is a constant velocity Kalman filter over an object centroid.
// Process and measurement noise scale with the observed box height so that
// large (near) objects are allowed to move more between frames than small
// (far) ones.
type KalmanFilter struct {
	stdWeightPosition float64
	stdWeightVelocity float64
	motionMat         *mat.Dense
	updateMat         *mat.Dense
}

// NewKalmanFilter initializes and returns a new KalmanFilter
func NewKalmanFilter(stdWeightPosition, stdWeightVelocity float64) *KalmanFilter {

	ndim := 2
	dt := 1.0

	// create identity matrix for motionMat with dt terms coupling position
	// and velocity
	motionMat := mat.NewDense(4, 4, nil)

	for i := 0; i < 4; i++ {
		motionMat.Set(i, i, 1.0)
	}

	for i := 0; i < ndim; i++ {
		motionMat.Set(i, ndim+i, dt)
	}

	// create updateMat as a 2x4 matrix projecting state onto the measured
	// centroid
	updateMat := mat.NewDense(2, 4, nil)

	for i := 0; i < 2; i++ {
		updateMat.Set(i, i, 1.0)
	}

	return &KalmanFilter{
		stdWeightPosition: stdWeightPosition,
		stdWeightVelocity: stdWeightVelocity,
		motionMat:         motionMat,
		updateMat:         updateMat,
	}
}

// Initiate initializes the state mean and covariance from the first observed
// centroid.  Scale is the observed bounding box height.
func (kf *KalmanFilter) Initiate(mean StateMean, covariance *StateCov,
	measurement Measurement, scale float64) {

	// position from the measurement, velocity components start at zero
	copy(mean[:2], measurement[:2])
	mean[2] = 0.0
	mean[3] = 0.0

	// initialize the standard deviation array for the state variables
	std := make(StateMean, 4)
	std[0] = 2 * kf.stdWeightPosition * scale  // x position
	std[1] = 2 * kf.stdWeightPosition * scale  // y position
	std[2] = 10 * kf.stdWeightVelocity * scale // x velocity
	std[3] = 10 * kf.stdWeightVelocity * scale // y velocity

	// set the diagonal elements of the covariance matrix to the variances
	for i, v := range std {
		covariance.Set(i, i, v*v)
	}
}

// Predict predicts the next state mean and covariance
func (kf *KalmanFilter) Predict(mean StateMean, covariance *StateCov,
	scale float64) {

	// initialize the standard deviation array for the state variables
	std := make(StateMean, 4)
	std[0] = kf.stdWeightPosition * scale // x position
	std[1] = kf.stdWeightPosition * scale // y position
	std[2] = kf.stdWeightVelocity * scale // x velocity
	std[3] = kf.stdWeightVelocity * scale // y velocity

	// create the motion covariance matrix with variances on the diagonal
	motionCov := mat.NewDense(4, 4, nil)

	for i, v := range std {
		motionCov.Set(i, i, v*v)
	}

	// predict the next state mean using the motion model
	meanMat := mat.NewDense(4, 1, append([]float64{}, mean...))
	meanMat.Mul(kf.motionMat, meanMat)

	for i := 0; i < 4; i++ {
		mean[i] = meanMat.At(i, 0)
	}

	// predict the next state covariance using the motion model
	cov := covariance.Dense
	cov.Mul(kf.motionMat, cov)
	cov.Mul(cov, kf.motionMat.T())
	cov.Add(cov, motionCov)
}

// Update updates the state mean and covariance with a new observed centroid
func (kf *KalmanFilter) Update(mean StateMean, covariance *StateCov,
	measurement Measurement, scale float64) error {

	// project the state mean and covariance to measurement space
	projectedMean, projectedCov := kf.project(mean, covariance, scale)

	// perform Cholesky factorization of the projected covariance matrix
	chol := mat.Cholesky{}

	if ok := chol.Factorize(projectedCov); !ok {
		return errors.New("failed to factorize projected covariance")
	}

	// compute the matrix B for Kalman gain calculation
	B := mat.NewDense(4, 2, nil)
	B.Mul(covariance.Dense, kf.updateMat.T())

	// compute the Kalman gain using the Cholesky factorization
	var kalmanGain mat.Dense
	err := chol.SolveTo(&kalmanGain, B.T())

	if err != nil {
		return fmt.Errorf("failed to compute kalman gain: %w", err)
	}

	// compute the innovation (measurement residual)
	innovation := mat.NewVecDense(2, []float64{
		measurement[0] - projectedMean[0],
		measurement[1] - projectedMean[1],
	})

	// update the state mean with the innovation
	tmp := mat.NewVecDense(4, nil)
	tmp.MulVec(kalmanGain.T(), innovation)

	for i := 0; i < 4; i++ {
		mean[i] += tmp.AtVec(i)
	}

	// update the state covariance
	temp := mat.NewDense(4, 2, nil)
	temp.Mul(kalmanGain.T(), projectedCov)

	temp2 := mat.NewDense(4, 4, nil)
	temp2.Mul(temp, &kalmanGain)

	newCov := mat.NewDense(4, 4, nil)
	newCov.Sub(covariance.Dense, temp2)

	covariance.Dense = newCov

	return nil
}

// project projects the state mean and covariance to measurement space
func (kf *KalmanFilter) project(mean StateMean,
	covariance *StateCov, scale float64) (Measurement, *mat.SymDense) {

	// compute standard deviations for the measurement noise
	stdX := kf.stdWeightPosition * scale
	stdY := kf.stdWeightPosition * scale

	// project the mean onto measurement space
	projectedMean := Measurement{mean[0], mean[1]}

	// project the covariance and add measurement noise on the diagonal
	temp := mat.NewDense(2, 4, nil)
	temp.Mul(kf.updateMat, covariance.Dense)

	projected := mat.NewDense(2, 2, nil)
	projected.Mul(temp, kf.updateMat.T())

	projectedCov := mat.NewSymDense(2, nil)

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			v := projected.At(i, j)

			if i == j {
				if i == 0 {
					v += stdX * stdX
				} else {
					v += stdY * stdY
				}
			}

			// symmetrize to guard against accumulated asymmetry
			projectedCov.SetSym(i, j, (v+projected.At(j, i))/2)
		}
	}

	return projectedMean, projectedCov
}
