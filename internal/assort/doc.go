// Package assort groups surveillance recordings by the calendar day they
// belong to and materializes each day either as a manifest of absolute paths
// or as a tree of hard links.
//
// A Transaction covers one run across every configured source. BeginTransaction
// clears the manifests of the lookback window, each Assort call enumerates one
// source, classifies its files with the source's Matcher and hands every
// bucket to the target's writer, and End moves the latest.txt pointer to the
// newest manifest. Assort calls are serialized on the transaction; once it is
// terminated every further call fails with ErrNoTransaction.
package assort
