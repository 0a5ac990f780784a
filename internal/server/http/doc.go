// Package httpserver exposes the queue engine over a small JSON HTTP API.
//
// The tick trigger surface:
//
//	POST /v1/tick?queue=<queue>      run one tick plus archive sweep
//
// Queue management:
//
//	GET  /v1/queues?queue=<queue>            queue document snapshot
//	POST /v1/queues/enqueue                  {queue, params}
//	GET  /v1/queues/entries?queue=&filter=   entries, optional CEL filter
//	POST /v1/queues/pause                    {queue}
//	POST /v1/queues/resume                   {queue}
//	POST /v1/queues/remove                   {queue, id}
//	GET  /v1/history?queue=<queue>           archived ledger rows
//	GET  /v1/healthz
package httpserver
