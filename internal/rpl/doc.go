// Package rpl implements the control plane of RPL, the IPv6 Routing
// Protocol for Low-Power and Lossy Networks (RFC 6550, RFC 6552, RFC 6553,
// and the DCO extension from draft-ietf-roll-efficient-npdao).
//
// The package owns wire encoding of DIS, DIO, DAO, DAO-ACK, DCO, and
// DCO-ACK messages, lollipop sequence arithmetic, the OF0 and MRHOF
// Objective Functions, and the instance/DAG/parent/route data model. It
// never touches a socket, a config file, or the neighbour/routing tables
// directly: those are reached only through the interfaces in
// collaborators.go, with concrete implementations living in
// internal/rpltransport and internal/rplstore.
package rpl
