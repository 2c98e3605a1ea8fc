package domain

import (
	"sort"
	"strings"
)

// Parámetros de estratificación. Son constantes de política ajustables,
// no valores derivados estadísticamente.
const (
	RecentWindow        = 5
	HighConfidenceFloor = 0.7
	LowConfidenceCeil   = 0.3
	MinBandSamples      = 3
	MinTopicSamples     = 2
	TopTopicCount       = 3
)

// TopicKeywords es el vocabulario fijo que se busca (substring, case-insensitive)
// en el texto de cada pregunta.
var TopicKeywords = []string{
	"bitcoin", "crypto", "ethereum", "election", "political", "sports", "market", "price",
}

// BandStats es la precisión de un subconjunto de trades.
type BandStats struct {
	Samples  int
	Correct  int
	Accuracy float64 // porcentaje
}

// Presentable indica si el bucket tiene muestras suficientes para mostrarse.
func (b BandStats) Presentable() bool {
	return b.Samples >= MinBandSamples
}

// TopicStats es la precisión sobre las preguntas que mencionan una keyword.
type TopicStats struct {
	Keyword  string
	Samples  int
	Correct  int
	Accuracy float64
}

// Insights es una vista derivada de un backtest. Se recalcula en cada request.
type Insights struct {
	TotalBets      int
	Accuracy       float64
	ROI            float64
	Recent         BandStats
	HighConfidence BandStats
	LowConfidence  BandStats
	// Topics contiene solo keywords con >= MinTopicSamples, ordenadas por precisión.
	Topics []TopicStats
}

// Empty devuelve true si no hay apuestas de las que derivar nada.
func (i Insights) Empty() bool {
	return i.TotalBets == 0
}

// TopTopics devuelve como máximo TopTopicCount topics.
func (i Insights) TopTopics() []TopicStats {
	if len(i.Topics) > TopTopicCount {
		return i.Topics[:TopTopicCount]
	}
	return i.Topics
}

// Aggregate deriva los insights de un resumen y su secuencia de trades.
// Es puro: mismo input, mismo output.
func Aggregate(summary BacktestSummary, trades []TradeRecord) Insights {
	in := Insights{
		TotalBets: summary.TotalBets,
		Accuracy:  summary.Accuracy,
		ROI:       summary.ROI,
	}
	if len(trades) == 0 {
		return in
	}

	k := min(RecentWindow, len(trades))
	in.Recent = bandOf(trades[len(trades)-k:], func(TradeRecord) bool { return true })
	in.HighConfidence = bandOf(trades, func(t TradeRecord) bool { return t.Estimate >= HighConfidenceFloor })
	in.LowConfidence = bandOf(trades, func(t TradeRecord) bool { return t.Estimate <= LowConfidenceCeil })
	in.Topics = topicStats(trades)
	return in
}

func bandOf(trades []TradeRecord, match func(TradeRecord) bool) BandStats {
	var b BandStats
	for _, t := range trades {
		if !match(t) {
			continue
		}
		b.Samples++
		if t.Correct {
			b.Correct++
		}
	}
	b.Accuracy = pct(b.Correct, b.Samples)
	return b
}

func topicStats(trades []TradeRecord) []TopicStats {
	order := make(map[string]int, len(TopicKeywords))
	var topics []TopicStats
	for i, kw := range TopicKeywords {
		order[kw] = i
		st := TopicStats{Keyword: kw}
		for _, t := range trades {
			if !strings.Contains(strings.ToLower(t.Question), kw) {
				continue
			}
			st.Samples++
			if t.Correct {
				st.Correct++
			}
		}
		if st.Samples < MinTopicSamples {
			continue
		}
		st.Accuracy = pct(st.Correct, st.Samples)
		topics = append(topics, st)
	}

	sort.SliceStable(topics, func(i, j int) bool {
		a, b := topics[i], topics[j]
		if a.Accuracy != b.Accuracy {
			return a.Accuracy > b.Accuracy
		}
		if a.Samples != b.Samples {
			return a.Samples > b.Samples
		}
		return order[a.Keyword] < order[b.Keyword]
	})
	return topics
}
