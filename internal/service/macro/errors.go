package macro

import "errors"

var (
	errNoRate      = errors.New("no base rate value in response")
	errNoInflation = errors.New("no inflation months in response")
	errNoAvgPrice  = errors.New("no average price in response")
)
