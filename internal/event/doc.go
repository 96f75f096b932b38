// Package event provides the per-plugin event channel used by the overlay.
//
// Every plugin hosted by the overlay owns exactly one Channel for its entire
// life. The overlay publishes lifecycle facts onto it (plugin-toggled) and the
// plugin publishes requests back (toggle-notification). A Channel is a small
// synchronous publish/subscribe object: Dispatch delivers to every matching
// subscription in subscription order before returning.
//
// # Subscribing
//
//	sub, err := ch.Subscribe(event.TypePluginToggled, func(ev event.Event) {
//	    // react to the plugin being shown or hidden
//	})
//	if err != nil {
//	    return err
//	}
//	defer sub.Cancel()
//
// Subscriptions can be paused, resumed, filtered, and limited to a single
// delivery with WithOnce. Panics in handlers are recovered and reported to the
// channel's panic handler, if one is configured.
package event
