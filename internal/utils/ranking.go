package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity       float64 // time gravity
	WeightLike    float64
	WeightComment float64
	ScaleFactor   float64
}

var DefaultConfig = RankConfig{
	Gravity:       1.5,
	WeightLike:    1.0,
	WeightComment: 2.0,
	ScaleFactor:   100.0,
}

// HotScore is the time-decayed engagement score used by the "hot" feed.
// It is computed on read from the display counters.
func HotScore(created time.Time, likes, comments int, now time.Time) float64 {
	hours := now.Sub(created).Hours()
	if hours < 0 {
		hours = 0
	}

	weightedSum := float64(likes)*DefaultConfig.WeightLike +
		float64(comments)*DefaultConfig.WeightComment
	if weightedSum < 0 {
		weightedSum = 0
	}

	// log10(sum+1) keeps sum=0 at 0
	numerator := math.Log10(weightedSum+1) * DefaultConfig.ScaleFactor
	decay := math.Pow(hours+2, DefaultConfig.Gravity)

	return numerator / decay
}
