// Package domain models flood-risk classification of rain gauge readings.
//
// # Data Source
//
// Readings originate from automatic rain gauge stations around Lhokseumawe.
// The upstream collector publishes each reading as flat JSON to the Kafka
// source topic; the same shape is accepted directly over HTTP. A reading
// carries accumulated rainfall in millimeters and, when the station has a
// survey record, terrain elevation in meters. Stations without a survey
// record send coordinates instead and the elevation is resolved from a
// terrain API during enrichment.
//
// # Risk Interpretation
//
// Clusters come out of model training with arbitrary IDs. Risk order is
// recovered from physical ground truth: low-lying terrain floods first, so
// centers sorted by raw elevation ascending run from most to least severe.
// Rainfall deliberately plays no part in the ordering; it spikes during any
// storm while elevation separates the terrain that stays wet from the
// terrain that drains.
//
//	center elevations 2 m, 10 m, 50 m  →  Severe, Caution, Safe
//
// Centers with equal elevation order by cluster ID ascending so the mapping
// is stable across rebuilds. The default three-band scale is
//
//	rank 0: Severe  #FF4B4B
//	rank 1: Caution #FFA500
//	rank 2: Safe    #28A745
//
// and a model with more clusters than the scale has bands extends it with
// neutral gray filler bands ("Level 3", "Level 4", ...) rather than failing.
// A category's rank always equals its center's position in the elevation
// sort, whether the name came from the scale or the filler. See
// [BuildAssignment].
//
// # Model Bundle
//
// Trained models ship as a single JSON bundle holding the standardization
// parameters (per-feature mean and scale) and the cluster centers in
// normalized space, in feature order (rainfall_mm, elevation_m). Assignment
// of an observation is nearest center by Euclidean distance in that
// normalized space, ties to the lowest cluster ID. The bundle is the only
// model artifact the service reads; see the kmeans package for loading and
// validation.
package domain
