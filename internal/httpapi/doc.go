// Package httpapi is the broker's HTTP surface: the websocket endpoint
// that binds clients to the pairing engine, the REST routes for users,
// auth, tasks and points, and /health.
//
// Routes, with {prefix} = server.api_prefix:
//
//	GET  {ws_path}?taskId=T          websocket upgrade
//	POST {prefix}/user               register
//	GET  {prefix}/user/points        leaderboard
//	GET  {prefix}/user/points/{uuid} points of one user
//	POST {prefix}/user/points/{uuid} add points
//	POST {prefix}/auth               login, returns a bearer token
//	GET  {prefix}/auth/user          caller (bearer)
//	PUT  {prefix}/auth/user          update caller (bearer)
//	GET  {prefix}/auth/user/{connId} public profile behind a connection (bearer)
//	GET  {prefix}/tasks              list tasks (bearer)
//	GET  {prefix}/tasks/{uuid}       one task (bearer)
//	POST {prefix}/tasks              create task (bearer)
//	GET  /health                     component health
package httpapi
