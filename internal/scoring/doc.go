// Package scoring records finished matches.
//
// The session layer hands each Outcome to a Recorder without blocking.
// The Recorder resolves both connection ids to users, awards the winner
// points and appends [winner, loser] to the task's results.
package scoring
