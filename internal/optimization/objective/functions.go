package objective

// Calibration is the name of the two-dimensional reference objective.
const Calibration = "evop-calibration"

// CalibrationFunc is 50(y - x^2)^2 + (2 - x)^2, minimized at (2, 4).
func CalibrationFunc(x []float64) float64 {
	a := x[1] - x[0]*x[0]
	b := 2.0 - x[0]
	return 50.0*a*a + b*b
}

// Sphere is the sum of squares of x.
func Sphere(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// Booth is (x + 2y - 7)^2 + (2x + y - 5)^2, minimized at (1, 3).
func Booth(x []float64) float64 {
	a := x[0] + 2*x[1] - 7
	b := 2*x[0] + x[1] - 5
	return a*a + b*b
}
