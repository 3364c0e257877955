// Package kmedoids implements bandit-accelerated k-medoids clustering
// (BanditPAM), plus the naive PAM and FastPAM1 alternatives it is measured
// against. All three share one dissimilarity oracle. BanditPAM seeds its
// medoids with a bandit-accelerated BUILD phase, while naive PAM and
// FastPAM1 use an exhaustive greedy BUILD; each has its own SWAP search.
//
// Construct an Engine with New, configure it with the With* options, then
// call Fit with an (n, d) point matrix. Read back MedoidsFinal, Labels, and
// Steps after a successful Fit.
package kmedoids
