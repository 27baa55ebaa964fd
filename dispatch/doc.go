// Package dispatch exposes namespaced caches over HTTP as middleware.
//
// A request becomes a cache operation when its query carries a trigger flag,
// a type tag and a prefix (plus cachekey for add and remove):
//
//	POST   ?addtocache&type=car&prefix=CARS&cachekey=AUDI_A4       body = item
//	DELETE ?removeitemfromcache&type=car&prefix=CARS&cachekey=AUDI_A4
//	GET    ?getvaluesfromcache&type=car&prefix=CARS
//
// Add and remove run, record their outcome in the X-Cache-Added or
// X-Cache-Removed header and hand the request on; the add body is restored
// first. List answers with a JSON array of the namespace's keys, or {} when
// there are none, and ends the request. Every other request passes through.
// An empty prefix value ("prefix=") selects the dispatcher's configured prefix.
//
// Item types are resolved through a Registry. Only tags bound with Register
// are reachable; there is no loading of arbitrary types by name.
package dispatch
