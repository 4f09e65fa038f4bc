// Package discovery finds INDIGO servers on the local network.
//
// INDIGO servers announce themselves over mDNS as "_indigo._tcp"
// services. The Browser turns those announcements into Service values
// carrying the endpoint to dial. Discovery is optional; clients with a
// known address can skip it entirely.
package discovery
