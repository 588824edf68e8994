// Package instagram drives Instagram's private web API through a single
// stateful Session.
//
// A Session owns a cookie jar and a header set. Login fills both, every
// response may rotate the csrf token, and Logout throws them away. Actions
// are thin methods that build a Request and hand it to Send:
//
//	sess, err := instagram.New(cfg, log)
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//
//	if err := sess.Login(ctx, "user", "secret"); err != nil {
//	    return err
//	}
//
//	edges, err := sess.GetHashFeed(ctx, "#love", 2)
//	if err != nil {
//	    var invalid *errors.InvalidHashtagError
//	    if stderrors.As(err, &invalid) {
//	        // nothing tagged with that name
//	    }
//	}
//
//	_ = sess.Like(ctx, instagram.Shortcode(edges[0].Node.Shortcode))
//
// Posts can be referenced by numeric id or by shortcode. Shortcodes are
// decoded locally by default; SetShortcodeResolver swaps in another lookup.
package instagram
