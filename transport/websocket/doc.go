// Package websocket carries arena frames over gorilla/websocket.
//
// A Hub assigns every accepted connection an id and hands its lifecycle
// and text frames to a Handler. Outbound frames are queued with Send and
// written in order by a per-client write pump; a client whose buffer fills
// up is disconnected.
//
// Usage:
//
//	hub := websocket.NewHub(dispatcher, nil)
//	go hub.Run(ctx)
//	router.HandleFunc("/ws", hub.ServeWS)
//
// Clients may pass an identity token as ?token=... when connecting.
package websocket
