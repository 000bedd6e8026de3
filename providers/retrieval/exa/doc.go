// Package exa is a client for the Exa AI-native search API and adapts its
// search and answer endpoints to research.Retriever.
//
// [Client.SearchRetriever] is the primary retriever of a research run;
// [Client.AnswerRetriever] contributes a grounded answer as notes plus its
// citations as sources.
package exa
