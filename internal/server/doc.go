// Package server exposes the Broadlink control library over a REST API.
//
// The surface mirrors the library: discovery, IR/RF learning, code
// sending, plug and strip power, sensor reads, bulb/plug/outlet state,
// and hub sub-device addressing. Handles are cached per device host so
// one authenticated session (and its packet counter) serves consecutive
// requests; a timeout or auth failure evicts the cached handle.
//
// Routes (all under /api/v1):
//
//	GET  /health
//	GET  /devices?timeout=5s
//	GET  /devices/{host}
//	POST /devices/{host}/learn/ir
//	POST /devices/{host}/learn/rf
//	POST /devices/{host}/send          {"code":"<hex>"}
//	GET  /devices/{host}/power
//	PUT  /devices/{host}/power         {"on":true,"socket":2}
//	GET  /devices/{host}/energy
//	GET  /devices/{host}/sensors
//	GET  /devices/{host}/state
//	PUT  /devices/{host}/state         family-specific option record
//	GET  /hubs/{host}/subdevices
//	GET  /hubs/{host}/subdevices/{did}
//	PUT  /hubs/{host}/subdevices/{did} {"pwr1":1}
//
// Learning endpoints hold the request open while the user presses remote
// buttons; clients should allow at least the library's 30-second learning
// deadline before giving up.
package server
