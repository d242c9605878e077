package testutil_test

// Note: mocks built on testify/mock follow a standard pattern and hold no
// logic of their own, so they get no dedicated unit tests. Their behavior is
// exercised by the tests of the components that consume them (e.g. the
// processor tests injecting MockDetector and MockConverter and asserting on
// the interactions).
