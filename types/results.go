package types

import "gonum.org/v1/gonum/stat"

// Results aggregated by one Execute call over its episodes
type Results struct {
	Episodes int   `json:"episodes"`
	Steps    []int `json:"steps"`
	Scores   []int `json:"scores"`
	Wins     int   `json:"wins"`
	Loses    int   `json:"loses"`
	Starves  int   `json:"starves"`
	Abort    bool  `json:"abort"`
}

func NewResults() Results {
	return Results{
		Steps:  make([]int, 0),
		Scores: make([]int, 0),
	}
}

// AddEpisode records the length and final score of an episode
func (r *Results) AddEpisode(steps, score int) {
	r.Episodes += 1
	r.Steps = append(r.Steps, steps)
	r.Scores = append(r.Scores, score)
}

func (r Results) MeanSteps() float64 {
	return mean(r.Steps)
}

func (r Results) MeanScore() float64 {
	return mean(r.Scores)
}

// TotalSteps over all recorded episodes
func (r Results) TotalSteps() int {
	total := 0
	for _, s := range r.Steps {
		total += s
	}
	return total
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	xs := make([]float64, len(values))
	for i, v := range values {
		xs[i] = float64(v)
	}
	return stat.Mean(xs, nil)
}
