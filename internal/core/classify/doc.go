// Package classify turns raw twemcache trace records into anonymized replay records
//
// A record is `timestamp,key,key_size,value_size,client_id,operation,ttl`; only the key
// (field 1) and the operation verb (field 5) are read. Verbs fold into three classes
// (read, set, mutate) and a Profile decides which token each class is written as and how
// many hex characters of the key digest survive.
//
// Classifier is immutable after construction and safe for concurrent use.
package classify
