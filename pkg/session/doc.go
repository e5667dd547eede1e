/*
Package session implements per-user session management.

The Manager serializes every operation on a given user id behind a dedicated,
reference-counted lock, so a slow handler for one user (for example a
provisioning call in flight) delays only that user's next event. Operations for
different users never wait on each other.
*/
package session
