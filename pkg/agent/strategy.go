package agent

import (
	"strings"

	"book-agent-be/pkg/store"
)

// DetermineStrategy turns (intent, context analysis, prior results) into a
// retrieval strategy. Deterministic decision table, evaluated in order:
//  1. asking about previous books        -> use_previous_only
//  2. topic shift                        -> new_search
//  3. author/genre/popularity intent     -> new_search
//  4. prior books + continuation + a refine/compare keyword -> context_boosted
//  5. prior books + continuation         -> similar_to_previous
//  6. otherwise                          -> new_search
//
// new_search doubles as the recovery path on any upstream error.
func (a *Analyzer) DetermineStrategy(message string, intent store.Intent, analysis ContextAnalysis, lastShown []store.BookRef, lang string) store.Strategy {
	if analysis.AskingAboutPrevious {
		return store.StrategyUsePreviousOnly
	}

	if analysis.TopicShift {
		return store.StrategyNewSearch
	}

	switch intent {
	case store.IntentAuthor, store.IntentGenre, store.IntentPopularity:
		return store.StrategyNewSearch
	}

	if len(lastShown) > 0 && analysis.IsContinuation {
		m := strings.ToLower(message)
		if containsAny(m, a.rules.Lang(lang).RefineCompare) {
			return store.StrategyContextBoosted
		}
		return store.StrategySimilarToPrevious
	}

	return store.StrategyNewSearch
}
