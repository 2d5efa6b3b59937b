// Package model defines the entities of the ticket journal: tickets with
// their reviews, friends, friend requests, friendships, the user profile and
// settings. Entities are treated as immutable once stored in a collection;
// helpers such as Ticket.Apply return modified copies.
package model
