// Package retry implements bounded retry with exponential backoff for
// capability-document fetches.
//
// The package is split along the spider retry contracts:
//   - ExponentialBackoff: spider.BackoffStrategy with jitter
//   - HTTPErrorClassifier: spider.ErrorClassifier for HTTP/network failures
//   - Executor: drives attempts, honoring context cancellation
//
// A federated catalog of hundreds of independently operated services always
// has some fraction unreachable; the classifier decides which failures are
// worth another attempt (timeouts, 5xx) and which are not (4xx, bad URLs).
package retry
