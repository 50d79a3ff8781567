// Package eventio reads and writes overlaybx event files.
//
// # Format
//
// An event file is a stream of JSON values. The first value is a header:
//
//	{"format":"overlaybx-events","version":2}
//
// Each following value is one event:
//
//	{
//	  "run": 1, "event": 7,
//	  "collections": [
//	    {"name": "MCParticle", "type": "MCParticle",
//	     "particles": [{"pdg": 11, "children": [1]}, {"pdg": 22, "parents": [0]}]},
//	    {"name": "VXDCollection", "type": "SimTrackerHit",
//	     "tracker_hits": [{"cell_id": 1, "pos": [15.9, 0.2, 3.1], "mc": {"c": "MCParticle", "i": 0}}]}
//	  ]
//	}
//
// Particle relations are indices into the same collection. Hits reference
// particles by collection name and index; a reference to a particle that is
// not in any particle collection of the event is written as null.
//
// # Compression
//
// The file extension selects the compression: ".zst" and ".evz" use zstd,
// ".sz" uses the snappy framing format, anything else is plain JSON.
package eventio
