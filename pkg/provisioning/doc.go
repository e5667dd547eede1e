/*
Package provisioning submits FTTH device change requests to the BCCS SOAP gateway.

The gateway offers no structured status field, so responses are classified by an
ordered list of case-insensitive substring rules evaluated first-match-wins. New
rules can be added as new response texts are discovered.
*/
package provisioning
